// Package hook runs prioritised handlers on playback events. A handler may
// rewrite the event in place or stop the chain with ErrInterrupt.
package hook

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrInterrupt signals that a handler wants to stop further processing.
// For Before* events it also vetoes the operation.
var ErrInterrupt = errors.New("hook interrupted")

// ---- Event names ----

const (
	OnScriptLoaded     = "on_script_loaded"
	OnTextShown        = "on_text_shown"
	OnChoiceShown      = "on_choice_shown"
	BeforeChoiceSelect = "before_choice_select"
	OnChoiceSelected   = "on_choice_selected"
	OnScrollStopped    = "on_scroll_stopped"
	OnScriptFinished   = "on_script_finished"
)

// Observable lists the events that report playback progress. Before* events
// are left out since they may still be vetoed.
var Observable = []string{
	OnScriptLoaded, OnTextShown, OnChoiceShown, OnChoiceSelected, OnScrollStopped, OnScriptFinished,
}

// Event is the payload passed through a handler chain.
type Event struct {
	Type    string   `json:"type"`
	Session string   `json:"session,omitempty"`
	Script  string   `json:"script,omitempty"`
	Step    int      `json:"step"`
	Speaker string   `json:"speaker,omitempty"`
	Text    string   `json:"text,omitempty"`
	Options []string `json:"options,omitempty"`
	Index   int      `json:"index,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// HookFn is a handler. Returning ErrInterrupt stops the chain; any other
// error is ignored and the chain continues.
type HookFn func(ctx context.Context, ev *Event) error

type hookEntry struct {
	priority int
	fn       HookFn
	name     string
}

// HookCenter manages handler registrations per event name.
type HookCenter struct {
	mu    sync.RWMutex
	hooks map[string][]*hookEntry
}

// NewHookCenter creates a new HookCenter.
func NewHookCenter() *HookCenter {
	return &HookCenter{hooks: make(map[string][]*hookEntry)}
}

// Register adds fn for event with the given priority (lower runs first).
// name is used for Unregister.
func (hc *HookCenter) Register(event string, priority int, name string, fn HookFn) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	entries := append(hc.hooks[event], &hookEntry{priority: priority, fn: fn, name: name})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority < entries[j].priority
	})
	hc.hooks[event] = entries
}

// Unregister removes all handlers with the given name for event.
func (hc *HookCenter) Unregister(event, name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.hooks[event] = without(hc.hooks[event], name)
}

// UnregisterAll removes the named handlers across all events.
func (hc *HookCenter) UnregisterAll(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	for event, entries := range hc.hooks {
		hc.hooks[event] = without(entries, name)
	}
}

func without(entries []*hookEntry, name string) []*hookEntry {
	n := 0
	for _, e := range entries {
		if e.name != name {
			entries[n] = e
			n++
		}
	}
	return entries[:n]
}

// Trigger runs the handlers registered for ev.Type in priority order.
// It returns ErrInterrupt if a handler stopped the chain. A nil center is
// a no-op.
func (hc *HookCenter) Trigger(ctx context.Context, ev *Event) error {
	if hc == nil {
		return nil
	}
	hc.mu.RLock()
	entries := make([]*hookEntry, len(hc.hooks[ev.Type]))
	copy(entries, hc.hooks[ev.Type])
	hc.mu.RUnlock()

	for _, e := range entries {
		if err := e.fn(ctx, ev); errors.Is(err, ErrInterrupt) {
			return err
		}
	}
	return nil
}
