// Package scheduler runs the session frame loop and the delayed tasks that
// expire idle sessions.
package scheduler

import (
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn is the function signature for scheduled tasks.
type TaskFn func()

// FrameFn receives the milliseconds elapsed since the previous frame.
type FrameFn func(elapsedMs int)

// Kind tells repeating tasks from one-shot ones.
type Kind string

const (
	KindTicker Kind = "ticker"
	KindDelay  Kind = "delay"
)

// Task describes a registered task.
type Task struct {
	Name     string        `json:"name"`
	Kind     Kind          `json:"kind"`
	Interval time.Duration `json:"interval"` // period or delay
	Due      time.Time     `json:"due,omitempty"`
}

// Scheduler manages named periodic and delayed tasks. Registering a name
// that already exists replaces the old task.
type Scheduler struct {
	mu      sync.Mutex
	tickers map[string]*tickerEntry
	timers  map[string]*timerEntry
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped bool
}

type tickerEntry struct {
	ticker   *time.Ticker
	interval time.Duration
	stopCh   chan struct{}
}

type timerEntry struct {
	timer *time.Timer
	delay time.Duration
	due   time.Time
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		tickers: make(map[string]*tickerEntry),
		timers:  make(map[string]*timerEntry),
		stopCh:  make(chan struct{}),
		logger:  logger,
	}
}

// run calls fn and logs instead of crashing when it panics.
func (s *Scheduler) run(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler task panicked",
				zap.String("task", name),
				zap.Any("recover", r))
		}
	}()
	fn()
}

// AddTicker registers a task to run on a fixed interval.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.removeLocked(name)

	entry := &tickerEntry{
		ticker:   time.NewTicker(interval),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
	s.tickers[name] = entry

	go func() {
		defer entry.ticker.Stop()
		for {
			select {
			case <-entry.ticker.C:
				s.run(name, fn)
			case <-entry.stopCh:
				return
			case <-s.stopCh:
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

// AddFrameLoop runs fn every frame interval, passing the wall-clock time
// actually elapsed since the previous frame so that a late tick still feeds
// the full budget.
func (s *Scheduler) AddFrameLoop(name string, frame time.Duration, fn FrameFn) {
	var mu sync.Mutex
	last := time.Now()
	s.AddTicker(name, frame, func() {
		mu.Lock()
		elapsed := int(time.Since(last) / time.Millisecond)
		if elapsed <= 0 {
			mu.Unlock()
			return
		}
		// keep the sub-millisecond remainder for the next frame
		last = last.Add(time.Duration(elapsed) * time.Millisecond)
		mu.Unlock()
		fn(elapsed)
	})
}

// AddDelay runs fn once after delay. Re-adding a pending name restarts its
// countdown, which is how session idle expiry is pushed back.
func (s *Scheduler) AddDelay(name string, delay time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.removeLocked(name)

	entry := &timerEntry{delay: delay, due: time.Now().Add(delay)}
	entry.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// a replaced or removed timer may still fire once
		if s.timers[name] != entry {
			s.mu.Unlock()
			return
		}
		delete(s.timers, name)
		s.mu.Unlock()
		s.run(name, fn)
	})
	s.timers[name] = entry
}

// Has reports whether a ticker or pending delay task is registered under name.
func (s *Scheduler) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, t := s.tickers[name]
	_, d := s.timers[name]
	return t || d
}

// Remove stops and removes a ticker or delay task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(name)
}

func (s *Scheduler) removeLocked(name string) {
	if entry, ok := s.tickers[name]; ok {
		close(entry.stopCh)
		delete(s.tickers, name)
	}
	if entry, ok := s.timers[name]; ok {
		entry.timer.Stop()
		delete(s.timers, name)
	}
}

// Stop stops all tickers and cancels pending delays. Later registrations
// are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stopCh)
	for name, entry := range s.timers {
		entry.timer.Stop()
		delete(s.timers, name)
	}
	s.tickers = make(map[string]*tickerEntry)
}

// Tasks lists registered tasks sorted by name. A non-empty prefix filters
// by name.
func (s *Scheduler) Tasks(prefix string) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tickers)+len(s.timers))
	for name, e := range s.tickers {
		if strings.HasPrefix(name, prefix) {
			out = append(out, Task{Name: name, Kind: KindTicker, Interval: e.interval})
		}
	}
	for name, e := range s.timers {
		if strings.HasPrefix(name, prefix) {
			out = append(out, Task{Name: name, Kind: KindDelay, Interval: e.delay, Due: e.due})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
