package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery returns a Gin middleware that catches panics from handlers and
// session playback, logs them with a stack, and answers HTTP 500 carrying
// the trace id. A stream that already sent its headers is only aborted.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			traceID := GetTraceID(c)
			fields := []zap.Field{
				zap.Any("error", r),
				zap.String("trace_id", traceID),
				zap.String("path", c.Request.URL.Path),
				zap.Stack("stack"),
			}
			if id := c.Param("id"); id != "" {
				fields = append(fields, zap.String("session", id))
			}
			log.Error("panic recovered", fields...)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":    "internal server error",
				"trace_id": traceID,
			})
		}()
		c.Next()
	}
}
