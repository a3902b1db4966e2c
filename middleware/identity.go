package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// Context keys for the caller's platform identity.
	GuildIDKey = "guildID"
	UserIDKey  = "userID"
)

// PlatformIdentity requires the headers the chat-platform gateway sets for
// every forwarded interaction. The caller is a known platform identity;
// anything beyond that is out of scope here.
func PlatformIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		guildID := c.GetHeader("X-Guild-ID")
		userID := c.GetHeader("X-User-ID")
		if guildID == "" || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing platform identity headers"})
			return
		}
		c.Set(GuildIDKey, guildID)
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// Identity pulls the platform identity placed by PlatformIdentity.
func Identity(c *gin.Context) (guildID, userID string) {
	return c.GetString(GuildIDKey), c.GetString(UserIDKey)
}
