package middleware

import (
	"errors"
	"net/http"
	"strings"

	"fintrack/api/auth"
	"fintrack/api/logger"
	"fintrack/api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClaimsKey is the gin context key holding the verified *auth.Identity.
const ClaimsKey = "user"

// TokenVerifier is satisfied by *auth.TokenService.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// AuthMiddleware verifies bearer tokens on protected routes. Preflight
// requests pass with 200 and never reach the handler.
func AuthMiddleware(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		tokenString := extractToken(c.Request)
		if tokenString == "" {
			reject(c, services.ErrMissingToken, "missing bearer token")
			return
		}

		identity, err := tokens.Verify(tokenString)
		if err != nil {
			logger.Get().Info("rejected bearer token",
				zap.String("path", c.FullPath()),
				zap.Error(err))
			if errors.Is(err, auth.ErrTokenExpired) {
				reject(c, services.ErrTokenExpired, "token expired")
				return
			}
			reject(c, services.ErrInvalidToken, "invalid token")
			return
		}

		c.Set(ClaimsKey, identity)
		c.Next()
	}
}

func reject(c *gin.Context, e *services.Error, reason string) {
	c.Header("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+reason+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": e.Code, "message": e.Message})
}

// ClaimsFromContext returns the identity stored by AuthMiddleware.
func ClaimsFromContext(c *gin.Context) (*auth.Identity, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*auth.Identity)
	return identity, ok && identity != nil
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return parts[1]
}

// TokenFromQuery copies a ?token= parameter into the Authorization header
// when none is set. Browsers cannot attach headers to an EventSource, so the
// event stream route accepts its token this way.
func TokenFromQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			if token := c.Query("token"); token != "" {
				c.Request.Header.Set("Authorization", "Bearer "+token)
			}
		}
		c.Next()
	}
}
