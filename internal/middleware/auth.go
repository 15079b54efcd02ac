package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenHeader carries the session token.
const TokenHeader = "x-auth-token"

// UsernameKey is the gin context key holding the authenticated username.
const UsernameKey = "username"

// TokenParser verifies a session token and returns its username.
type TokenParser interface {
	Parse(token string) (string, error)
}

// AuthMiddleware rejects requests without a valid session token.
func AuthMiddleware(tokens TokenParser, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader(TokenHeader)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			return
		}

		username, err := tokens.Parse(tokenString)
		if err != nil {
			logger.Debug("Invalid session token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Failed to authenticate token"})
			return
		}

		c.Set(UsernameKey, username)

		c.Next()
	}
}
