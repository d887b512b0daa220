package handlers

import "github.com/gin-gonic/gin"

// getUserID extracts the user ID placed in gin context by the identity
// middleware. Zero means no identity.
func getUserID(c *gin.Context) uint64 {
	val, exists := c.Get("userID")
	if !exists {
		return 0
	}
	id, ok := val.(uint64)
	if !ok {
		return 0
	}
	return id
}
