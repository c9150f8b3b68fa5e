package middleware

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(c *gin.Context) string

// ByClientIP charges requests to the client address.
func ByClientIP(c *gin.Context) string { return c.ClientIP() }

// BySession charges requests to the :id path parameter, falling back to the
// client address for routes without one.
func BySession(c *gin.Context) string {
	if id := c.Param("id"); id != "" {
		return "session:" + id
	}
	return c.ClientIP()
}

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// RateLimit provides token-bucket rate limiting per key.
// r = requests per second, b = burst size. A nil key uses ByClientIP.
func RateLimit(r rate.Limit, b int, key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = ByClientIP
	}
	limiters := &sync.Map{}

	// Cleanup goroutine: remove stale entries every 5 minutes.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-10 * time.Minute).UnixNano()
			limiters.Range(func(k, v any) bool {
				if v.(*keyedLimiter).lastSeen.Load() < cutoff {
					limiters.Delete(k)
				}
				return true
			})
		}
	}()

	getLimiter := func(k string) *rate.Limiter {
		v, _ := limiters.LoadOrStore(k, &keyedLimiter{limiter: rate.NewLimiter(r, b)})
		kl := v.(*keyedLimiter)
		kl.lastSeen.Store(time.Now().UnixNano())
		return kl.limiter
	}

	return func(c *gin.Context) {
		if !getLimiter(key(c)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
