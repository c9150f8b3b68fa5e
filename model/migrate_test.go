package model_test

import (
	"testing"

	"github.com/kasuganosora/scenarioplayer/model"
	"github.com/kasuganosora/scenarioplayer/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// StoryFlag
	f := &model.StoryFlag{Profile: "default", Name: "met_aoi", Kind: 0, Value: "true"}
	require.NoError(t, db.Create(f).Error)

	var found model.StoryFlag
	require.NoError(t, db.First(&found, "profile = ? AND name = ?", "default", "met_aoi").Error)
	assert.Equal(t, "true", found.Value)
	assert.False(t, found.UpdatedAt.IsZero())

	// EventUnlock
	require.NoError(t, db.Create(&model.EventUnlock{Profile: "default", EventID: "cg_01", Unlocked: true}).Error)

	// ChoiceLog
	cl := &model.ChoiceLog{
		Profile: "default", Script: "ch01", Ordinal: 1, SelectedIndex: 0, Text: "Go left",
		Options: datatypes.JSON(`["Go left","Go right"]`),
	}
	require.NoError(t, db.Create(cl).Error)
	assert.Greater(t, cl.ID, int64(0))

	// BacklogEntry
	be := &model.BacklogEntry{Profile: "default", Script: "ch01", Speaker: "Aoi", Text: "Hello."}
	require.NoError(t, db.Create(be).Error)
	assert.Greater(t, be.ID, int64(0))
}
