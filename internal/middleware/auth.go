package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-site-api/internal/auth"
)

// ContextAdminEmail is the gin context key holding the authenticated admin.
const ContextAdminEmail = "admin_email"

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// JWTAuthMiddleware validates JWT token in Authorization header
func JWTAuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			scheme, token, ok := strings.Cut(authHeader, " ")
			if ok && scheme == "Bearer" {
				tokenString = strings.TrimSpace(token)
			}
		}
		// browsers cannot set headers on websocket upgrades
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is required",
				"code":  "UNAUTHORIZED",
			})
			return
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
				"code":  "UNAUTHORIZED",
			})
			return
		}

		c.Set(ContextAdminEmail, claims.Email)
		c.Next()
	}
}
