package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/marconicastro/zeropragas-sub000/internal/logging"
	"github.com/marconicastro/zeropragas-sub000/internal/security"
)

// apiKeyMiddleware guards the browser-event API. Keys are compared by
// SHA-256 hash so the configured set can hold hashes instead of plaintext.
func (s *Server) apiKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}
		if !s.keyHashes[security.HashKey(key)] {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}
		c.Next()
	}
}

// validWebhookSecret checks the shared secret carried either as a query
// parameter or in the X-Webhook-Token header.
func (s *Server) validWebhookSecret(c *gin.Context) bool {
	token := c.Query("secret")
	if token == "" {
		token = c.GetHeader("X-Webhook-Token")
	}
	return token != "" && security.SecureCompare(token, s.cfg.WebhookSecret)
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := gonanoid.New()
		if err == nil {
			c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
			c.Header("X-Request-ID", id)
		}
		c.Next()
	}
}
