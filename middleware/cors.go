package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CorsMiddleware echoes the request origin when it is in allowedOrigins.
// Credentials are only allowed for explicitly listed origins, never for "*".
func CorsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed, explicit := false, false
		for _, o := range allowedOrigins {
			if o == origin && origin != "" {
				allowed, explicit = true, true
				break
			}
			if o == "*" {
				allowed = true
			}
		}

		if allowed && origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			c.Writer.Header().Add("Vary", "Origin")
			if explicit {
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}
