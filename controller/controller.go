package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/alvarofc/supachat/middleware"
	"github.com/alvarofc/supachat/quota"
)

// identityFrom resolves the caller's quota identity from the auth middleware.
func identityFrom(c *gin.Context) quota.Identity {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		return quota.Anonymous()
	}
	return quota.Registered(userID)
}
