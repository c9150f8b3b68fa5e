package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	mw "github.com/kasuganosora/scenarioplayer/middleware"
)

// Handlers groups the REST handlers mounted by Routes. Nil handlers leave
// their routes unmounted.
type Handlers struct {
	Scripts  *ScriptHandler
	Sessions *SessionHandler
	Story    *StoryHandler
	Admin    *AdminHandler
	// Events streams session events (GET /api/sessions/:id/events).
	Events gin.HandlerFunc
}

// Routes mounts the preview API under api.
func Routes(api *gin.RouterGroup, h Handlers, lookup mw.SessionLookup, adminKey string) {
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if h.Scripts != nil {
		api.GET("/scripts", h.Scripts.List)
		api.GET("/scripts/*name", scriptRoute(h.Scripts))
		api.GET("/ir/schema", h.Scripts.Schema)
	}

	if h.Sessions != nil {
		api.GET("/sessions", h.Sessions.List)
		api.POST("/sessions", h.Sessions.Create)
		sessG := api.Group("/sessions/:id", mw.LoadSession(lookup, h.Sessions.Touch))
		sessG.GET("", h.Sessions.Get)
		sessG.DELETE("", h.Sessions.Delete)
		sessG.POST("/load", h.Sessions.Load)
		sessG.POST("/advance", h.Sessions.Advance)
		sessG.POST("/choice", h.Sessions.Choice)
		sessG.POST("/skip", h.Sessions.Skip)
		sessG.POST("/mode", h.Sessions.Mode)
		sessG.GET("/transcript", h.Sessions.Transcript)
		if h.Events != nil {
			sessG.GET("/events", h.Events)
		}
	}

	if h.Story != nil {
		api.GET("/flags", h.Story.Flags)
		api.GET("/events", h.Story.Events)
		api.GET("/backlog", h.Story.Backlog)
	}

	if h.Admin != nil {
		adminG := api.Group("/admin", AdminAuth(adminKey))
		adminG.GET("/metrics", h.Admin.Metrics)
		adminG.POST("/sessions/close", h.Admin.CloseAll)
	}
}

// scriptRoute dispatches /scripts/<name>/ir and /scripts/<name>/diagnostics.
// Script names may contain slashes, so the name is matched as a catch-all.
func scriptRoute(h *ScriptHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		full := strings.TrimPrefix(c.Param("name"), "/")
		var handler gin.HandlerFunc
		name := ""
		switch {
		case strings.HasSuffix(full, "/ir"):
			name, handler = strings.TrimSuffix(full, "/ir"), h.IR
		case strings.HasSuffix(full, "/diagnostics"):
			name, handler = strings.TrimSuffix(full, "/diagnostics"), h.Diagnostics
		}
		if handler == nil || name == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		for i := range c.Params {
			if c.Params[i].Key == "name" {
				c.Params[i].Value = name
			}
		}
		handler(c)
	}
}
