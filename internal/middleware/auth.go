package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextUserID is the gin context key holding the authenticated user's ID.
const ContextUserID = "userID"

// AccessTokenValidator is what AuthMiddleware needs from the token layer.
type AccessTokenValidator interface {
	ValidateAccessToken(token string) (int64, error)
}

// AuthMiddleware is the "security guard" for protected routes. A missing or
// malformed header is 401; a token that fails verification is 403. The
// check is pure: no storage is touched.
func AuthMiddleware(tokens AccessTokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token"})
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token format (must be Bearer)"})
			return
		}

		userID, err := tokens.ValidateAccessToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Invalid token"})
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// UserID returns the ID stored by AuthMiddleware.
func UserID(c *gin.Context) (int64, bool) {
	raw, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := raw.(int64)
	return id, ok
}
