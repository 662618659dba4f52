package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MicroserviceAuthMiddleware guards internal endpoints with a shared X-API-Key.
// An empty configured key rejects every request.
func MicroserviceAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.Request.Header.Get("X-API-Key")
		if apiKey == "" || subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
