package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scenarioplayer/config"
	"github.com/kasuganosora/scenarioplayer/game/player"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLoadSession(t *testing.T) {
	sm := player.NewSessionManager(zap.NewNop())
	sm.Register(player.NewSession("s1", config.Default().Playback, player.Deps{}, zap.NewNop()))

	var touched []string
	eng := gin.New()
	eng.GET("/sessions/:id", LoadSession(sm, func(id string) { touched = append(touched, id) }), func(c *gin.Context) {
		c.String(http.StatusOK, GetSession(c).ID)
	})

	w := httptest.NewRecorder()
	eng.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/s1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", w.Body.String())
	assert.Equal(t, []string{"s1"}, touched)

	w = httptest.NewRecorder()
	eng.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, touched, 1)
}

func TestGetSession_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetSession(c))
}
