// Package cache abstracts the key-value store used for IR dump caching,
// flag and unlock mirrors, recent backlog lines and session event fan-out.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/kasuganosora/scenarioplayer/cache/local"
	cacheredis "github.com/kasuganosora/scenarioplayer/cache/redis"
)

// Cache is the subset of key-value operations the player needs. Each group
// serves one store; both backends implement it.
type Cache interface {
	// IR dumps, keyed by source hash and format.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Flag mirror: one hash per profile.
	HSet(ctx context.Context, key, field, value string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// Unlocked events: one set per profile.
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)

	// Recent backlog lines, newest first. PushCapped prepends values and
	// keeps at most max items in one atomic step.
	PushCapped(ctx context.Context, key string, max int64, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Message is a received pub/sub message.
type Message struct {
	Channel string
	Payload string
}

// PubSub defines channel publish/subscribe operations.
type PubSub interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error)
}

// CacheConfig holds configuration for both Redis and LocalCache.
type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

// IsNotFound reports whether err is a missing-key error from either backend.
func IsNotFound(err error) bool {
	return errors.Is(err, local.ErrNotFound) || errors.Is(err, cacheredis.ErrNotFound)
}

// NewCache returns a Cache backed by Redis if RedisAddr is set,
// otherwise returns an in-process LocalCache.
func NewCache(cfg CacheConfig) (Cache, error) {
	if cfg.RedisAddr != "" {
		return cacheredis.NewCache(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return local.NewCache(local.Config{
		GCInterval: cfg.LocalGCInterval,
	})
}

// NewPubSub returns a PubSub backed by Redis if RedisAddr is set,
// otherwise an in-process LocalPubSub.
func NewPubSub(cfg CacheConfig) (PubSub, error) {
	bufSize := cfg.LocalPubSubBuf
	if bufSize <= 0 {
		bufSize = 256
	}
	if cfg.RedisAddr != "" {
		rps, err := cacheredis.NewPubSub(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return &redisPubSubAdapter{ps: rps, buf: bufSize}, nil
	}
	return &localPubSubAdapter{ps: local.NewPubSub(bufSize), buf: bufSize}, nil
}

// bridge copies backend messages onto a cache.Message channel until in closes.
func bridge[T any](in <-chan T, buf int, conv func(T) *Message) <-chan *Message {
	out := make(chan *Message, buf)
	go func() {
		defer close(out)
		for msg := range in {
			out <- conv(msg)
		}
	}()
	return out
}

type localPubSubAdapter struct {
	ps  *local.LocalPubSub
	buf int
}

func (a *localPubSubAdapter) Publish(ctx context.Context, channel, message string) error {
	return a.ps.Publish(ctx, channel, message)
}

func (a *localPubSubAdapter) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	ch, cancel, err := a.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	return bridge(ch, a.buf, func(m *local.LocalMessage) *Message {
		return &Message{Channel: m.Channel, Payload: m.Payload}
	}), cancel, nil
}

type redisPubSubAdapter struct {
	ps  *cacheredis.RedisPubSub
	buf int
}

func (a *redisPubSubAdapter) Publish(ctx context.Context, channel, message string) error {
	return a.ps.Publish(ctx, channel, message)
}

func (a *redisPubSubAdapter) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	ch, cancel, err := a.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	return bridge(ch, a.buf, func(m *cacheredis.RedisMessage) *Message {
		return &Message{Channel: m.Channel, Payload: m.Payload}
	}), cancel, nil
}
