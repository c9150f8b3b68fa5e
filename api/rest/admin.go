package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scenarioplayer/game/player"
	"github.com/kasuganosora/scenarioplayer/scheduler"
	"go.uber.org/zap"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	sm     *player.SessionManager
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(sm *player.SessionManager, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{sm: sm, sched: sched, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	finished := 0
	for _, s := range h.sm.All() {
		if s.IsFinished() {
			finished++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions":          h.sm.Count(),
		"finished_sessions": finished,
		"idle_timers":       len(h.sched.Tasks(idleTaskPrefix)),
		"scheduler_tasks":   h.sched.Tasks(""),
	})
}

// CloseAll closes every live session.
// POST /api/admin/sessions/close
func (h *AdminHandler) CloseAll(c *gin.Context) {
	n := h.sm.Count()
	h.sm.CloseAllSessions()
	h.logger.Info("admin closed all sessions", zap.Int("count", n))
	c.JSON(http.StatusOK, gin.H{"ok": true, "closed": n})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// An empty adminKey disables admin endpoints (503).
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		if c.GetHeader("X-Admin-Key") != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
