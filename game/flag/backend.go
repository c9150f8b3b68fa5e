package flag

import (
	"context"
	"fmt"

	"github.com/kasuganosora/scenarioplayer/cache"
	"github.com/kasuganosora/scenarioplayer/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBackend persists flags in the story_flags table.
type GormBackend struct {
	db *gorm.DB
}

// NewGormBackend creates a backend over db.
func NewGormBackend(db *gorm.DB) *GormBackend {
	return &GormBackend{db: db}
}

// LoadFlags reads every flag of a profile.
func (b *GormBackend) LoadFlags(ctx context.Context, profile string) (map[string]Value, error) {
	var rows []model.StoryFlag
	if err := b.db.WithContext(ctx).Where("profile = ?", profile).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("flag: load %s: %w", profile, err)
	}
	out := make(map[string]Value, len(rows))
	for _, r := range rows {
		out[r.Name] = fromRow(r)
	}
	return out, nil
}

// SaveFlag upserts one flag.
func (b *GormBackend) SaveFlag(ctx context.Context, profile, name string, v Value) error {
	row := model.StoryFlag{Profile: profile, Name: name, Kind: int(v.Kind), Value: v.String()}
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "value", "updated_at"}),
	}).Create(&row).Error
}

func fromRow(r model.StoryFlag) Value {
	switch Kind(r.Kind) {
	case KindBool:
		return Bool(r.Value == "true")
	case KindInt:
		v := Parse(r.Value)
		if v.Kind == KindInt {
			return v
		}
	}
	return String(r.Value)
}

// CacheBackend mirrors flags into a cache hash "flags:<profile>", one field
// per flag holding the encoded value.
type CacheBackend struct {
	c cache.Cache
}

// NewCacheBackend creates a backend over c.
func NewCacheBackend(c cache.Cache) *CacheBackend {
	return &CacheBackend{c: c}
}

func cacheKey(profile string) string { return "flags:" + profile }

// LoadFlags reads the profile hash. Undecodable fields are skipped.
func (b *CacheBackend) LoadFlags(ctx context.Context, profile string) (map[string]Value, error) {
	raw, err := b.c.HGetAll(ctx, cacheKey(profile))
	if err != nil {
		return nil, fmt.Errorf("flag: load %s: %w", profile, err)
	}
	out := make(map[string]Value, len(raw))
	for name, enc := range raw {
		v, err := Decode(enc)
		if err != nil {
			continue
		}
		out[name] = v
	}
	return out, nil
}

// SaveFlag writes one field.
func (b *CacheBackend) SaveFlag(ctx context.Context, profile, name string, v Value) error {
	return b.c.HSet(ctx, cacheKey(profile), name, v.Encode())
}

// Chain writes to every backend in order and loads from the first one that
// returns a non-empty result. Use it to put a cache in front of the database.
type Chain []Backend

func (ch Chain) LoadFlags(ctx context.Context, profile string) (map[string]Value, error) {
	var lastErr error
	for _, b := range ch {
		m, err := b.LoadFlags(ctx, profile)
		if err != nil {
			lastErr = err
			continue
		}
		if len(m) > 0 {
			return m, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return map[string]Value{}, nil
}

func (ch Chain) SaveFlag(ctx context.Context, profile, name string, v Value) error {
	var firstErr error
	for _, b := range ch {
		if err := b.SaveFlag(ctx, profile, name, v); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
