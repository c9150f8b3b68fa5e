package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	TraceIDKey    = "trace_id"
	TraceIDHeader = "X-Trace-ID"
	// TraceIDQuery carries the trace ID for EventSource clients, which
	// cannot set request headers.
	TraceIDQuery = "trace_id"

	maxTraceIDLen = 64
)

// TraceID tags every request with a trace ID and echoes it in the response
// header. A caller-supplied ID is kept only if it is short and printable;
// otherwise a UUID is generated.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = c.Query(TraceIDQuery)
		}
		if !validTraceID(traceID) {
			traceID = uuid.New().String()
		}
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Next()
	}
}

func validTraceID(id string) bool {
	if id == "" || len(id) > maxTraceIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// GetTraceID returns the request's trace ID, or "" outside TraceID.
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}
