// Package local is the in-process cache backend used when no Redis address
// is configured.
package local

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
}

// entry holds a cached string value with an optional expiry.
type entry struct {
	data     string
	expireAt time.Time // zero = never
}

func (e *entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// LocalCache is an in-process cache implementing cache.Cache.
type LocalCache struct {
	kv         sync.Map // key → *entry
	hashes     sync.Map // key → *sync.Map (field → string)
	sets       sync.Map // key → *lockedSet
	lists      sync.Map // key → *lockedList
	gcInterval time.Duration
	stopGC     chan struct{}
	closeOnce  sync.Once
}

// NewCache creates a LocalCache and starts the background GC goroutine.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := &LocalCache{
		gcInterval: interval,
		stopGC:     make(chan struct{}),
	}
	go c.runGC()
	return c, nil
}

// Close stops the background GC goroutine. Safe to call more than once.
func (c *LocalCache) Close() {
	c.closeOnce.Do(func() { close(c.stopGC) })
}

func (c *LocalCache) runGC() {
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			c.sweep(now)
		case <-c.stopGC:
			return
		}
	}
}

// sweep drops expired IR entries. Hash, set and list keys never expire.
func (c *LocalCache) sweep(now time.Time) int {
	n := 0
	c.kv.Range(func(k, v any) bool {
		if e, ok := v.(*entry); ok && e.expired(now) {
			c.kv.Delete(k)
			n++
		}
		return true
	})
	return n
}

// ---- KV ----

func (c *LocalCache) load(key string) (*entry, bool) {
	v, ok := c.kv.Load(key)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	if e.expired(time.Now()) {
		c.kv.Delete(key)
		return nil, false
	}
	return e, true
}

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	e, ok := c.load(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.data, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := &entry{data: value}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}
	c.kv.Store(key, e)
	return nil
}

// ---- Hash ----

func (c *LocalCache) hash(key string) *sync.Map {
	v, _ := c.hashes.LoadOrStore(key, &sync.Map{})
	return v.(*sync.Map)
}

func (c *LocalCache) HSet(_ context.Context, key, field, value string) error {
	c.hash(key).Store(field, value)
	return nil
}

func (c *LocalCache) HGetAll(_ context.Context, key string) (map[string]string, error) {
	result := make(map[string]string)
	v, ok := c.hashes.Load(key)
	if !ok {
		return result, nil
	}
	v.(*sync.Map).Range(func(k, v any) bool {
		result[k.(string)] = v.(string)
		return true
	})
	return result, nil
}

// ---- Set ----

type lockedSet struct {
	mu      sync.RWMutex
	members map[string]struct{}
}

func (c *LocalCache) set(key string) *lockedSet {
	v, _ := c.sets.LoadOrStore(key, &lockedSet{members: make(map[string]struct{})})
	return v.(*lockedSet)
}

func (c *LocalCache) SAdd(_ context.Context, key string, members ...string) error {
	s := c.set(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		s.members[m] = struct{}{}
	}
	return nil
}

func (c *LocalCache) SRem(_ context.Context, key string, members ...string) error {
	s := c.set(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		delete(s.members, m)
	}
	return nil
}

func (c *LocalCache) SIsMember(_ context.Context, key, member string) (bool, error) {
	s := c.set(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[member]
	return ok, nil
}

// ---- List ----

type lockedList struct {
	mu   sync.Mutex
	data []string // head first
}

func (c *LocalCache) list(key string) *lockedList {
	v, _ := c.lists.LoadOrStore(key, &lockedList{})
	return v.(*lockedList)
}

// span resolves Redis-style inclusive indices (negative counts from the tail)
// against a list of length n. ok is false when the range is empty.
func span(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}

// PushCapped prepends values so that the last one becomes the head, then
// drops everything past max.
func (c *LocalCache) PushCapped(_ context.Context, key string, max int64, values ...string) error {
	l := c.list(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	head := make([]string, 0, len(values)+len(l.data))
	for i := len(values) - 1; i >= 0; i-- {
		head = append(head, values[i])
	}
	l.data = append(head, l.data...)
	if max >= 0 && int64(len(l.data)) > max {
		l.data = l.data[:max:max]
	}
	return nil
}

func (c *LocalCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	l := c.list(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	from, to, ok := span(int64(len(l.data)), start, stop)
	if !ok {
		return nil, nil
	}
	result := make([]string, to-from+1)
	copy(result, l.data[from:to+1])
	return result, nil
}
