package player

import (
	"sync"

	"go.uber.org/zap"
)

// SessionManager maintains the registry of live playback sessions.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session // id → session
	logger   *zap.Logger
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(logger *zap.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Register adds a session. A previous session with the same id is closed
// first.
func (sm *SessionManager) Register(s *Session) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if old, ok := sm.sessions[s.ID]; ok && old != s {
		old.Close()
		sm.logger.Info("duplicate session displaced", zap.String("session", s.ID))
	}
	sm.sessions[s.ID] = s
	sm.logger.Info("playback session registered", zap.String("session", s.ID))
}

// Unregister closes and removes the session with id. It reports whether
// the session existed.
func (sm *SessionManager) Unregister(id string) bool {
	sm.mu.Lock()
	s, ok := sm.sessions[id]
	delete(sm.sessions, id)
	sm.mu.Unlock()
	if ok {
		s.Close()
		sm.logger.Info("playback session unregistered", zap.String("session", id))
	}
	return ok
}

// Get returns the session for id, or nil if not found.
func (sm *SessionManager) Get(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// All returns a snapshot slice of all current sessions.
func (sm *SessionManager) All() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		out = append(out, s)
	}
	return out
}

// TickAll feeds one frame of elapsed milliseconds to every session. The
// registry lock is not held while sessions run.
func (sm *SessionManager) TickAll(elapsed int) {
	for _, s := range sm.All() {
		s.Tick(elapsed)
	}
}

// CloseAllSessions closes and removes every session.
func (sm *SessionManager) CloseAllSessions() {
	sm.mu.Lock()
	sessions := sm.sessions
	sm.sessions = make(map[string]*Session)
	sm.mu.Unlock()

	sm.logger.Info("closing all sessions", zap.Int("count", len(sessions)))
	for _, s := range sessions {
		s.Close()
	}
}
