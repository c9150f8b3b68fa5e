// Package redis is the Redis cache backend.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

const pingTimeout = 5 * time.Second

// dial opens a client and verifies the server answers.
func dial(cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func notFound(err error) error {
	if errors.Is(err, goredis.Nil) {
		return ErrNotFound
	}
	return err
}

func toArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// RedisCache implements cache.Cache backed by Redis.
type RedisCache struct {
	client *goredis.Client
}

// NewCache creates a Redis-backed cache.
func NewCache(cfg Config) (*RedisCache, error) {
	client, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

// Close releases the connection pool.
func (r *RedisCache) Close() error { return r.client.Close() }

// ---- KV ----

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	return v, notFound(err)
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// ---- Hash ----

func (r *RedisCache) HSet(ctx context.Context, key, field, value string) error {
	return r.client.HSet(ctx, key, field, value).Err()
}

func (r *RedisCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return r.client.HGetAll(ctx, key).Result()
}

// ---- Set ----

func (r *RedisCache) SAdd(ctx context.Context, key string, members ...string) error {
	return r.client.SAdd(ctx, key, toArgs(members)...).Err()
}

func (r *RedisCache) SRem(ctx context.Context, key string, members ...string) error {
	return r.client.SRem(ctx, key, toArgs(members)...).Err()
}

func (r *RedisCache) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return r.client.SIsMember(ctx, key, member).Result()
}

// ---- List ----

// PushCapped runs LPUSH and LTRIM in one MULTI so readers never see the
// list over max.
func (r *RedisCache) PushCapped(ctx context.Context, key string, max int64, values ...string) error {
	_, err := r.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.LPush(ctx, key, toArgs(values)...)
		p.LTrim(ctx, key, 0, max-1)
		return nil
	})
	return err
}

func (r *RedisCache) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return r.client.LRange(ctx, key, start, stop).Result()
}

// ---- PubSub ----

// RedisMessage is the message type returned by RedisPubSub.Subscribe.
type RedisMessage struct {
	Channel string
	Payload string
}

// RedisPubSub wraps the Redis PubSub client.
type RedisPubSub struct {
	client *goredis.Client
}

// NewPubSub creates a Redis-backed PubSub.
func NewPubSub(cfg Config) (*RedisPubSub, error) {
	client, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisPubSub{client: client}, nil
}

func (r *RedisPubSub) Publish(ctx context.Context, channel, message string) error {
	return r.client.Publish(ctx, channel, message).Err()
}

// Subscribe waits for the subscription to be confirmed before returning so
// that messages published right after are not lost.
func (r *RedisPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *RedisMessage, func(), error) {
	ps := r.client.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}
	ch := make(chan *RedisMessage, 256)

	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			ch <- &RedisMessage{Channel: msg.Channel, Payload: msg.Payload}
		}
	}()

	cancel := func() {
		_ = ps.Close()
	}
	return ch, cancel, nil
}
