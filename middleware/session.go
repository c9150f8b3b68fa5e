package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scenarioplayer/game/player"
)

const SessionKey = "playback_session"

// SessionLookup finds a live session. *player.SessionManager implements it.
type SessionLookup interface {
	Get(id string) *player.Session
}

// LoadSession resolves the :id path parameter to a live session and stores
// it in the Gin context. Unknown or closed sessions answer 404. touch, if
// non-nil, is called with the id of every resolved session.
func LoadSession(lookup SessionLookup, touch func(id string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		s := lookup.Get(id)
		if s == nil || s.IsClosed() {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if touch != nil {
			touch(id)
		}
		c.Set(SessionKey, s)
		c.Next()
	}
}

// GetSession retrieves the session stored by LoadSession.
func GetSession(c *gin.Context) *player.Session {
	if v, exists := c.Get(SessionKey); exists {
		return v.(*player.Session)
	}
	return nil
}
