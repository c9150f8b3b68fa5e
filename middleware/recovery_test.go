package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestRecovery_AnswersWithTraceID(t *testing.T) {
	log, logs := observed()
	r := gin.New()
	r.Use(TraceID(), Recovery(log))
	r.POST("/sessions/:id/advance", func(c *gin.Context) { panic("stage exploded") })

	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/advance", nil)
	req.Header.Set(TraceIDHeader, "t-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "t-1", body["trace_id"])

	entries := logs.FilterMessage("panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "s1", entries[0].ContextMap()["session"])
}

func TestRecovery_StreamAlreadyStarted(t *testing.T) {
	log, _ := observed()
	r := gin.New()
	r.Use(Recovery(log))
	r.GET("/events", func(c *gin.Context) {
		c.String(http.StatusOK, "event: connected\n\n")
		panic("subscriber gone")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "event: connected\n\n", w.Body.String())
}

func TestLogger_LevelByStatus(t *testing.T) {
	log, logs := observed()
	r := gin.New()
	r.Use(TraceID(), Logger(log))
	r.GET("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/gone", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "gone", entries[0].ContextMap()["session"])
	assert.Equal(t, "/sessions/:id", entries[0].ContextMap()["route"])
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
}
