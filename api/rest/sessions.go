package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kasuganosora/scenarioplayer/game/player"
	"github.com/kasuganosora/scenarioplayer/game/scenario"
	mw "github.com/kasuganosora/scenarioplayer/middleware"
	"github.com/kasuganosora/scenarioplayer/resource"
	"github.com/kasuganosora/scenarioplayer/scheduler"
	"go.uber.org/zap"
)

// SessionFactory builds an idle session with the server's collaborators.
type SessionFactory func(id string) *player.Session

// SessionHandler drives remote playback sessions.
type SessionHandler struct {
	sm         *player.SessionManager
	newSession SessionFactory
	sched      *scheduler.Scheduler // nil disables idle expiry
	idle       time.Duration
	logger     *zap.Logger
}

// NewSessionHandler creates a SessionHandler. Sessions untouched for idle
// are closed by a delay task on sched.
func NewSessionHandler(sm *player.SessionManager, factory SessionFactory, sched *scheduler.Scheduler, idle time.Duration, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sm: sm, newSession: factory, sched: sched, idle: idle, logger: logger}
}

const idleTaskPrefix = "session_idle:"

func idleTask(id string) string { return idleTaskPrefix + id }

// Touch postpones the idle expiry of session id.
func (h *SessionHandler) Touch(id string) {
	if h.sched == nil || h.idle <= 0 {
		return
	}
	h.sched.AddDelay(idleTask(id), h.idle, func() {
		if h.sm.Unregister(id) {
			h.logger.Info("idle session expired", zap.String("session", id))
		}
	})
}

type createSessionRequest struct {
	Script string `json:"script" binding:"required"`
	Auto   bool   `json:"auto"`
	Skip   bool   `json:"skip"`
}

// Create handles POST /api/sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := h.newSession(uuid.NewString())
	if err := s.LoadScript(c.Request.Context(), req.Script); err != nil {
		s.Close()
		h.loadError(c, req.Script, err)
		return
	}
	s.SetAutoMode(req.Auto)
	s.SetSkipMode(req.Skip)
	h.sm.Register(s)
	h.Touch(s.ID)
	c.JSON(http.StatusCreated, gin.H{"id": s.ID, "snapshot": s.Snapshot()})
}

func (h *SessionHandler) loadError(c *gin.Context, name string, err error) {
	if errors.Is(err, resource.ErrScriptNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "script not found"})
		return
	}
	h.logger.Error("load script", zap.String("script", name), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// List handles GET /api/sessions.
func (h *SessionHandler) List(c *gin.Context) {
	sessions := h.sm.All()
	type sessionInfo struct {
		ID       string `json:"id"`
		Script   string `json:"script"`
		Step     int    `json:"step"`
		Finished bool   `json:"finished"`
	}
	result := make([]sessionInfo, 0, len(sessions))
	for _, s := range sessions {
		snap := s.Snapshot()
		result = append(result, sessionInfo{ID: s.ID, Script: snap.Script, Step: snap.Step, Finished: snap.Finished})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": result, "count": len(result)})
}

// Get handles GET /api/sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, mw.GetSession(c).Snapshot())
}

// Load handles POST /api/sessions/:id/load. Flags and the choice history
// of the session carry over.
func (h *SessionHandler) Load(c *gin.Context) {
	var req struct {
		Script string `json:"script" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := mw.GetSession(c)
	if err := s.LoadScript(c.Request.Context(), req.Script); err != nil {
		h.loadError(c, req.Script, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// Advance handles POST /api/sessions/:id/advance.
func (h *SessionHandler) Advance(c *gin.Context) {
	s := mw.GetSession(c)
	advanced := s.Advance()
	c.JSON(http.StatusOK, gin.H{"advanced": advanced, "snapshot": s.Snapshot()})
}

// Choice handles POST /api/sessions/:id/choice.
func (h *SessionHandler) Choice(c *gin.Context) {
	var req struct {
		Index *int `json:"index" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := mw.GetSession(c)
	err := s.SelectChoice(*req.Index)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, s.Snapshot())
	case errors.Is(err, scenario.ErrChoiceOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, scenario.ErrNotAwaitingChoice), errors.Is(err, player.ErrChoiceVetoed), errors.Is(err, player.ErrNoScript):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("select choice", zap.String("session", s.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// Skip handles POST /api/sessions/:id/skip.
func (h *SessionHandler) Skip(c *gin.Context) {
	s := mw.GetSession(c)
	s.SkipReveal()
	c.JSON(http.StatusOK, s.Snapshot())
}

// Mode handles POST /api/sessions/:id/mode. Omitted fields keep their value.
func (h *SessionHandler) Mode(c *gin.Context) {
	var req struct {
		Auto *bool `json:"auto"`
		Skip *bool `json:"skip"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := mw.GetSession(c)
	if req.Auto != nil {
		s.SetAutoMode(*req.Auto)
	}
	if req.Skip != nil {
		s.SetSkipMode(*req.Skip)
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// Transcript handles GET /api/sessions/:id/transcript.
func (h *SessionHandler) Transcript(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"lines": mw.GetSession(c).VisibleTranscriptLines()})
}

// Delete handles DELETE /api/sessions/:id.
func (h *SessionHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if !h.sm.Unregister(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if h.sched != nil {
		h.sched.Remove(idleTask(id))
	}
	c.Status(http.StatusNoContent)
}
