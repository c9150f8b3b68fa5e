package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTraceRouter() *gin.Engine {
	r := gin.New()
	r.Use(TraceID())
	r.GET("/sessions/:id/events", func(c *gin.Context) {
		c.String(http.StatusOK, GetTraceID(c))
	})
	return r
}

func traceOf(t *testing.T, r *gin.Engine, req *http.Request) string {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, w.Body.String(), w.Header().Get(TraceIDHeader))
	return w.Body.String()
}

func TestTraceID_Generated(t *testing.T) {
	id := traceOf(t, newTraceRouter(), httptest.NewRequest(http.MethodGet, "/sessions/s1/events", nil))
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func TestTraceID_FromHeaderOrQuery(t *testing.T) {
	r := newTraceRouter()

	req := httptest.NewRequest(http.MethodGet, "/sessions/s1/events", nil)
	req.Header.Set(TraceIDHeader, "preview-42")
	assert.Equal(t, "preview-42", traceOf(t, r, req))

	req = httptest.NewRequest(http.MethodGet, "/sessions/s1/events?trace_id=es.7", nil)
	assert.Equal(t, "es.7", traceOf(t, r, req))
}

func TestTraceID_RejectsUnsafeIDs(t *testing.T) {
	r := newTraceRouter()
	for _, bad := range []string{"has space", "line\nbreak", strings.Repeat("a", maxTraceIDLen+1)} {
		req := httptest.NewRequest(http.MethodGet, "/sessions/s1/events", nil)
		req.Header.Set(TraceIDHeader, bad)
		got := traceOf(t, r, req)
		assert.NotEqual(t, bad, got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err, "replaced with a UUID")
	}
}

func TestGetTraceID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", GetTraceID(c))
}

func TestTraceID_UniquePerRequest(t *testing.T) {
	r := newTraceRouter()
	a := traceOf(t, r, httptest.NewRequest(http.MethodGet, "/sessions/s1/events", nil))
	b := traceOf(t, r, httptest.NewRequest(http.MethodGet, "/sessions/s1/events", nil))
	assert.NotEqual(t, a, b)
}
