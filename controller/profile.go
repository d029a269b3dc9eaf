package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alvarofc/supachat/logic"
	"github.com/alvarofc/supachat/quota"
)

// ProfileController handles profile HTTP requests.
type ProfileController struct {
	profileLogic *logic.ProfileLogic
	tracker      *quota.Tracker
}

func NewProfileController(profileLogic *logic.ProfileLogic, tracker *quota.Tracker) *ProfileController {
	return &ProfileController{profileLogic: profileLogic, tracker: tracker}
}

// GetProfile handles GET /profile. Requires authentication.
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	id := identityFrom(ctx)

	profile, err := c.profileLogic.GetProfile(ctx.Request.Context(), id.UserID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	remaining, err := c.tracker.Remaining(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"profile":   profile,
		"remaining": remaining,
	})
}

// GetRemaining handles GET /quota. Works for anonymous callers too.
func (c *ProfileController) GetRemaining(ctx *gin.Context) {
	remaining, err := c.tracker.Remaining(ctx.Request.Context(), identityFrom(ctx))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"remaining": remaining})
}
