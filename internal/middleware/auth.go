package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ddtft/internal/auth"
)

const (
	ContextKeySubject = "subject"
	ContextKeyName    = "name"
	ContextKeyClaims  = "claims"
)

// AnonymousSubject is recorded as creator when authentication is disabled.
const AnonymousSubject = "anonymous"

// AuthMiddleware returns Gin middleware that validates bearer tokens and
// injects the caller identity into the context.
func AuthMiddleware(validator auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "missing or invalid authorization header"},
			})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := validator.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "invalid or expired token"},
			})
			return
		}

		c.Set(ContextKeySubject, claims.Subject)
		c.Set(ContextKeyName, claims.Name)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// Anonymous stands in for AuthMiddleware when authentication is disabled.
func Anonymous() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeySubject, AnonymousSubject)
		c.Next()
	}
}

// GetSubject extracts the caller subject from the Gin context.
func GetSubject(c *gin.Context) string {
	val, exists := c.Get(ContextKeySubject)
	if !exists {
		return ""
	}
	s, _ := val.(string)
	return s
}
