// Package sse streams playback hook events of one session to browsers.
// Events travel through cache.PubSub, so a preview server behind Redis can
// serve the stream from any instance.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scenarioplayer/cache"
	"github.com/kasuganosora/scenarioplayer/plugin/hook"
	"go.uber.org/zap"
)

const publisherName = "sse"

// Channel is the pub/sub channel carrying events of session id.
func Channel(id string) string { return "session:" + id + ":events" }

// Handler publishes hook events and serves the event stream.
type Handler struct {
	pubsub    cache.PubSub
	keepalive time.Duration
	logger    *zap.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, keepalive: 30 * time.Second, logger: logger}
}

// Attach registers a publisher on every observable event of hc. It runs
// after all other handlers so the published event carries their rewrites.
func (h *Handler) Attach(hc *hook.HookCenter) {
	for _, name := range hook.Observable {
		hc.Register(name, 1000, publisherName, h.publish)
	}
}

func (h *Handler) publish(ctx context.Context, ev *hook.Event) error {
	if ev.Session == "" {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := h.pubsub.Publish(ctx, Channel(ev.Session), string(payload)); err != nil {
		h.logger.Warn("sse publish failed", zap.String("session", ev.Session), zap.Error(err))
	}
	return nil
}

// ServeEvents handles GET /sessions/:id/events.
func (h *Handler) ServeEvents(c *gin.Context) {
	id := c.Param("id")

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, Channel(id))
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.String("session", id), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"session\":%q}\n\n", id)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			var ev struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil || ev.Type == "" {
				ev.Type = "message"
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}
