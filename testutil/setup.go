// Package testutil builds throwaway databases and caches for tests.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/kasuganosora/scenarioplayer/cache"
	"github.com/kasuganosora/scenarioplayer/config"
	dbadapter "github.com/kasuganosora/scenarioplayer/db"
	"github.com/kasuganosora/scenarioplayer/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates a private in-memory SQLite DB and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode: dbadapter.ModeSQLiteMemory,
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates LocalCache and LocalPubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	return setupCache(t, cache.CacheConfig{}) // empty RedisAddr → LocalCache
}

// SetupRedisCache starts a miniredis server and returns Redis-backed cache
// and PubSub connected to it.
func SetupRedisCache(t *testing.T) (cache.Cache, cache.PubSub, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, ps := setupCache(t, cache.CacheConfig{RedisAddr: mr.Addr()})
	return c, ps, mr
}

func setupCache(t *testing.T, cfg cache.CacheConfig) (cache.Cache, cache.PubSub) {
	t.Helper()
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: NewCache")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	if closer, ok := c.(interface{ Close() }); ok {
		t.Cleanup(closer.Close)
	}
	return c, ps
}
