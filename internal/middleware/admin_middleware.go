package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminKeyRequired guards the admin surface with a shared API key. The
// acting admin identifies themselves via X-Admin-Email, which handlers
// record as the audit actor.
func AdminKeyRequired(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin API not configured"})
			c.Abort()
			return
		}

		provided := c.GetHeader("X-Admin-Key")
		if provided == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "X-Admin-Key header required"})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid admin key"})
			c.Abort()
			return
		}

		actor := c.GetHeader("X-Admin-Email")
		if actor == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Admin-Email header required"})
			c.Abort()
			return
		}
		c.Set("admin_actor", actor)

		c.Next()
	}
}

// WebhookKeyRequired guards the order webhook endpoints. Empty key means
// the webhook is open (development only).
func WebhookKeyRequired(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		provided := c.GetHeader("X-Webhook-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
