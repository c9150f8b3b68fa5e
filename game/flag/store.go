package flag

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Backend persists flags for one profile (save slot).
type Backend interface {
	LoadFlags(ctx context.Context, profile string) (map[string]Value, error)
	SaveFlag(ctx context.Context, profile, name string, v Value) error
}

const defaultSaveTimeout = 3 * time.Second

// Store is the in-memory flag map for a profile. Every mutation is written
// through to the backend; a failed write is logged and the in-memory value
// is kept so playback continues.
type Store struct {
	mu      sync.RWMutex
	profile string
	values  map[string]Value
	backend Backend // nil = memory only (tests, previews)
	logger  *zap.Logger
}

// NewStore creates an empty store. backend may be nil.
func NewStore(profile string, backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		profile: profile,
		values:  make(map[string]Value),
		backend: backend,
		logger:  logger,
	}
}

// Profile returns the profile the store belongs to.
func (s *Store) Profile() string { return s.profile }

// Load replaces the in-memory state with what the backend holds.
// Call once when entering a script set.
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	loaded, err := s.backend.LoadFlags(ctx, s.profile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]Value, len(loaded))
	for k, v := range loaded {
		s.values[k] = v
	}
	return nil
}

// Get returns the value of a flag and whether it has been set.
func (s *Store) Get(name string) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Set stores a value and persists it. Writing the value a flag already has
// is a no-op.
func (s *Store) Set(name string, v Value) error {
	s.mu.Lock()
	if old, ok := s.values[name]; ok && old.Kind == v.Kind && old.Equal(v) {
		s.mu.Unlock()
		return nil
	}
	s.values[name] = v
	s.mu.Unlock()

	if s.backend == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultSaveTimeout)
	defer cancel()
	if err := s.backend.SaveFlag(ctx, s.profile, name, v); err != nil {
		s.logger.Error("failed to persist flag",
			zap.String("profile", s.profile),
			zap.String("flag", name),
			zap.Error(err))
		return err
	}
	return nil
}

// Snapshot returns a copy of all flags.
func (s *Store) Snapshot() map[string]Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Names returns the set flag names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
