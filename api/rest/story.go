package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scenarioplayer/game/backlog"
	"github.com/kasuganosora/scenarioplayer/game/flag"
	"go.uber.org/zap"
)

const defaultBacklogLimit = 50

// EventLister lists unlocked story events. *scenario.GormEventRegistry
// implements it.
type EventLister interface {
	Unlocked(ctx context.Context) ([]string, error)
}

// BacklogReader reads persisted dialogue history. *backlog.Service
// implements it.
type BacklogReader interface {
	Recent(ctx context.Context, profile string, n int) ([]backlog.Entry, error)
	List(ctx context.Context, profile, script string) ([]backlog.Entry, error)
}

// StoryHandler exposes the persistent story state of the server profile.
type StoryHandler struct {
	flags   *flag.Store
	events  EventLister   // may be nil
	backlog BacklogReader // may be nil
	logger  *zap.Logger
}

// NewStoryHandler creates a StoryHandler.
func NewStoryHandler(flags *flag.Store, events EventLister, bl BacklogReader, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{flags: flags, events: events, backlog: bl, logger: logger}
}

// Flags handles GET /api/flags.
func (h *StoryHandler) Flags(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profile": h.flags.Profile(), "flags": h.flags.Snapshot()})
}

// Events handles GET /api/events.
func (h *StoryHandler) Events(c *gin.Context) {
	ids := []string{}
	if h.events != nil {
		got, err := h.events.Unlocked(c.Request.Context())
		if err != nil {
			h.logger.Error("list unlocked events", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		ids = append(ids, got...)
	}
	c.JSON(http.StatusOK, gin.H{"unlocked": ids})
}

// Backlog handles GET /api/backlog?script=<name>&limit=<n>. With a script
// it returns that script's full history, oldest first; without one, the
// most recent lines, newest first.
func (h *StoryHandler) Backlog(c *gin.Context) {
	entries := []backlog.Entry{}
	if h.backlog == nil {
		c.JSON(http.StatusOK, gin.H{"entries": entries})
		return
	}
	profile := h.flags.Profile()
	var (
		got []backlog.Entry
		err error
	)
	if name := c.Query("script"); name != "" {
		got, err = h.backlog.List(c.Request.Context(), profile, name)
	} else {
		limit := defaultBacklogLimit
		if s := c.Query("limit"); s != "" {
			n, convErr := strconv.Atoi(s)
			if convErr != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = n
		}
		got, err = h.backlog.Recent(c.Request.Context(), profile, limit)
	}
	if err != nil {
		h.logger.Error("read backlog", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	entries = append(entries, got...)
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
