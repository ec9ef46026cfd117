package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"seedmart/internal/utils"
)

// CORSMiddleware opens the API to browser-based admin tooling. The allowed
// headers cover the admin key pair and the webhook key; there is no cookie
// or bearer auth on this surface.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-Admin-Key, X-Admin-Email, X-Webhook-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware tags every request with an id for log correlation.
// Webhook callers may supply their own via X-Request-ID so a delivery can
// be traced from the order system into the commission posting.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d-%s", time.Now().UnixNano(), utils.GenerateRandomNumericString(4))
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
