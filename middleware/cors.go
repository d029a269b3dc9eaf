package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Cors attaches CORS headers to every response. Preflight OPTIONS requests
// short-circuit with a bare 200 "ok" body, matching what the browser client
// expects from the edge function.
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, PUT, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.String(http.StatusOK, "ok")
			c.Abort()
			return
		}

		c.Next()
	}
}
