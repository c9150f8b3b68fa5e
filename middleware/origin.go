package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AllowOrigins answers cross-origin requests from the listed origins. An
// empty list allows every origin. Requests without an Origin header pass
// through untouched.
func AllowOrigins(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		if len(allowed) > 0 && !allowed[origin] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
			return
		}
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+TraceIDHeader)
		h.Set("Access-Control-Expose-Headers", TraceIDHeader)
		h.Add("Vary", "Origin")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
