package scenario_test

import (
	"context"
	"testing"

	"github.com/kasuganosora/scenarioplayer/game/scenario"
	"github.com/kasuganosora/scenarioplayer/model"
	"github.com/kasuganosora/scenarioplayer/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormChoiceLog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	log := scenario.NewGormChoiceLog(db, "slot1")

	require.NoError(t, log.AppendChoice("intro", scenario.ChoiceRecord{Ordinal: 1, Index: 1, Text: "Y"}, []string{"X", "Y"}))
	require.NoError(t, log.AppendChoice("intro", scenario.ChoiceRecord{Ordinal: 2, Index: 0, Text: "A"}, []string{"A", "B"}))
	require.NoError(t, log.AppendChoice("other", scenario.ChoiceRecord{Ordinal: 1, Index: 0, Text: "Z"}, []string{"Z", "W"}))

	got, err := log.List(context.Background(), "intro")
	require.NoError(t, err)
	assert.Equal(t, []scenario.ChoiceRecord{
		{Ordinal: 1, Index: 1, Text: "Y"},
		{Ordinal: 2, Index: 0, Text: "A"},
	}, got)

	var row model.ChoiceLog
	require.NoError(t, db.Where("script = ? AND ordinal = ?", "intro", 1).First(&row).Error)
	assert.JSONEq(t, `["X","Y"]`, string(row.Options))
}

func TestGormEventRegistry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	reg := scenario.NewGormEventRegistry(db, "slot1")

	require.NoError(t, reg.Unlock("b"))
	require.NoError(t, reg.Unlock("a"))
	require.NoError(t, reg.Unlock("c"))
	require.NoError(t, reg.Lock("c"))
	require.NoError(t, reg.Unlock("a"))

	ids, err := reg.Unlocked(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	other, err := scenario.NewGormEventRegistry(db, "slot2").Unlocked(context.Background())
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCacheEventRegistry(t *testing.T) {
	c, _ := testutil.SetupTestCache(t)
	reg := scenario.NewCacheEventRegistry(c, "slot1")
	ctx := context.Background()

	require.NoError(t, reg.Unlock("ending_a"))
	ok, err := reg.IsUnlocked(ctx, "ending_a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, reg.Lock("ending_a"))
	ok, err = reg.IsUnlocked(ctx, "ending_a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEventRegistriesWriteAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	gormReg := scenario.NewGormEventRegistry(db, "p")
	cacheReg := scenario.NewCacheEventRegistry(c, "p")

	regs := scenario.EventRegistries{gormReg, cacheReg}
	require.NoError(t, regs.Unlock("e1"))

	ids, err := gormReg.Unlocked(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, ids)
	ok, err := cacheReg.IsUnlocked(context.Background(), "e1")
	require.NoError(t, err)
	assert.True(t, ok)
}
