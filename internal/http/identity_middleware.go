package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserIDHeader carries the portal user's identity. The portal gateway
// authenticates the session and injects this header; the economy service
// trusts it.
const UserIDHeader = "X-User-ID"

// UserIdentityMiddleware reads the portal-injected user ID into gin context.
// Requests without a usable identity are rejected before any handler runs.
func UserIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}
		userID, errParse := strconv.ParseUint(raw, 10, 64)
		if errParse != nil || userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user identity"})
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}
