package flag_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kasuganosora/scenarioplayer/game/flag"
	"github.com/kasuganosora/scenarioplayer/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingBackend struct {
	saves int
	fail  bool
}

func (b *countingBackend) LoadFlags(context.Context, string) (map[string]flag.Value, error) {
	return map[string]flag.Value{"preset": flag.Int(7)}, nil
}

func (b *countingBackend) SaveFlag(context.Context, string, string, flag.Value) error {
	b.saves++
	if b.fail {
		return errors.New("disk full")
	}
	return nil
}

func TestStoreSetGet(t *testing.T) {
	s := flag.NewStore("default", nil, zap.NewNop())
	_, ok := s.Get("seen")
	assert.False(t, ok)

	require.NoError(t, s.Set("seen", flag.Bool(true)))
	v, ok := s.Get("seen")
	assert.True(t, ok)
	assert.Equal(t, flag.Bool(true), v)
	assert.Equal(t, []string{"seen"}, s.Names())
}

func TestStoreSkipsUnchangedWrites(t *testing.T) {
	b := &countingBackend{}
	s := flag.NewStore("default", b, zap.NewNop())
	require.NoError(t, s.Set("n", flag.Int(1)))
	require.NoError(t, s.Set("n", flag.Int(1)))
	require.NoError(t, s.Set("n", flag.Int(2)))
	assert.Equal(t, 2, b.saves)
}

func TestStoreKeepsValueOnPersistFailure(t *testing.T) {
	b := &countingBackend{fail: true}
	s := flag.NewStore("default", b, zap.NewNop())
	err := s.Set("n", flag.Int(1))
	assert.Error(t, err)
	v, ok := s.Get("n")
	assert.True(t, ok)
	assert.Equal(t, flag.Int(1), v)
}

func TestStoreLoad(t *testing.T) {
	s := flag.NewStore("default", &countingBackend{}, nil)
	require.NoError(t, s.Load(context.Background()))
	v, ok := s.Get("preset")
	assert.True(t, ok)
	assert.Equal(t, flag.Int(7), v)
}

func TestGormBackendRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	b := flag.NewGormBackend(db)

	s := flag.NewStore("slot1", b, zap.NewNop())
	require.NoError(t, s.Set("seen", flag.Bool(true)))
	require.NoError(t, s.Set("route", flag.Int(2)))
	require.NoError(t, s.Set("name", flag.String("12x")))
	require.NoError(t, s.Set("route", flag.Int(3))) // upsert

	reloaded := flag.NewStore("slot1", b, zap.NewNop())
	require.NoError(t, reloaded.Load(context.Background()))
	assert.Equal(t, map[string]flag.Value{
		"seen":  flag.Bool(true),
		"route": flag.Int(3),
		"name":  flag.String("12x"),
	}, reloaded.Snapshot())

	other := flag.NewStore("slot2", b, zap.NewNop())
	require.NoError(t, other.Load(context.Background()))
	assert.Empty(t, other.Snapshot())
}

func TestCacheBackendRoundTrip(t *testing.T) {
	c, _, _ := testutil.SetupRedisCache(t)
	b := flag.NewCacheBackend(c)

	s := flag.NewStore("slot1", b, zap.NewNop())
	require.NoError(t, s.Set("seen", flag.Bool(true)))
	require.NoError(t, s.Set("route", flag.Int(2)))

	reloaded := flag.NewStore("slot1", b, zap.NewNop())
	require.NoError(t, reloaded.Load(context.Background()))
	assert.Equal(t, flag.Int(2), reloaded.Snapshot()["route"])
	assert.Equal(t, flag.Bool(true), reloaded.Snapshot()["seen"])
}

func TestChainFallsThroughToDatabase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	gb := flag.NewGormBackend(db)
	require.NoError(t, gb.SaveFlag(context.Background(), "p", "seen", flag.Bool(true)))

	chain := flag.Chain{flag.NewCacheBackend(c), gb}
	m, err := chain.LoadFlags(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, flag.Bool(true), m["seen"])

	require.NoError(t, chain.SaveFlag(context.Background(), "p", "route", flag.Int(1)))
	cached, err := flag.NewCacheBackend(c).LoadFlags(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, flag.Int(1), cached["route"])
}
