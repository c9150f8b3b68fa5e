// 持久化：基于 GORM 的选择日志与事件解锁表，以及基于缓存集合的事件解锁镜像。
package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kasuganosora/scenarioplayer/cache"
	"github.com/kasuganosora/scenarioplayer/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// storeTimeout 单次持久化操作的超时。执行器在驱动线程上同步调用。
const storeTimeout = 3 * time.Second

// ---- GormChoiceLog ----

// GormChoiceLog 把选择写入 choice_logs 表。
type GormChoiceLog struct {
	db      *gorm.DB
	profile string
}

// NewGormChoiceLog 创建指定存档的选择日志。
func NewGormChoiceLog(db *gorm.DB, profile string) *GormChoiceLog {
	return &GormChoiceLog{db: db, profile: profile}
}

// AppendChoice 追加一条选择记录。
func (l *GormChoiceLog) AppendChoice(script string, rec ChoiceRecord, options []string) error {
	opts, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("scenario: encode options: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	row := model.ChoiceLog{
		Profile:       l.profile,
		Script:        script,
		Ordinal:       rec.Ordinal,
		SelectedIndex: rec.Index,
		Text:          rec.Text,
		Options:       datatypes.JSON(opts),
	}
	return l.db.WithContext(ctx).Create(&row).Error
}

// List 按时间顺序返回某个剧本的全部选择记录。
func (l *GormChoiceLog) List(ctx context.Context, script string) ([]ChoiceRecord, error) {
	var rows []model.ChoiceLog
	err := l.db.WithContext(ctx).
		Where("profile = ? AND script = ?", l.profile, script).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("scenario: list choices: %w", err)
	}
	out := make([]ChoiceRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, ChoiceRecord{Ordinal: r.Ordinal, Index: r.SelectedIndex, Text: r.Text})
	}
	return out, nil
}

// ---- GormEventRegistry ----

// GormEventRegistry 把事件解锁状态写入 event_unlocks 表。
type GormEventRegistry struct {
	db      *gorm.DB
	profile string
}

// NewGormEventRegistry 创建指定存档的事件注册表。
func NewGormEventRegistry(db *gorm.DB, profile string) *GormEventRegistry {
	return &GormEventRegistry{db: db, profile: profile}
}

// Unlock 解锁事件。
func (r *GormEventRegistry) Unlock(id string) error { return r.save(id, true) }

// Lock 锁定事件。
func (r *GormEventRegistry) Lock(id string) error { return r.save(id, false) }

func (r *GormEventRegistry) save(id string, unlocked bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	row := model.EventUnlock{Profile: r.profile, EventID: id, Unlocked: unlocked}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile"}, {Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"unlocked", "updated_at"}),
	}).Create(&row).Error
}

// Unlocked 返回已解锁的事件 ID。
func (r *GormEventRegistry) Unlocked(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.EventUnlock{}).
		Where("profile = ? AND unlocked = ?", r.profile, true).
		Order("event_id ASC").
		Pluck("event_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("scenario: list unlocked events: %w", err)
	}
	return ids, nil
}

// ---- CacheEventRegistry ----

// CacheEventRegistry 用缓存集合 "events:<profile>" 记录已解锁事件。
type CacheEventRegistry struct {
	c       cache.Cache
	profile string
}

// NewCacheEventRegistry 创建基于缓存的事件注册表。
func NewCacheEventRegistry(c cache.Cache, profile string) *CacheEventRegistry {
	return &CacheEventRegistry{c: c, profile: profile}
}

func (r *CacheEventRegistry) key() string { return "events:" + r.profile }

// Unlock 解锁事件。
func (r *CacheEventRegistry) Unlock(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	return r.c.SAdd(ctx, r.key(), id)
}

// Lock 锁定事件。
func (r *CacheEventRegistry) Lock(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	return r.c.SRem(ctx, r.key(), id)
}

// IsUnlocked 查询事件是否已解锁。
func (r *CacheEventRegistry) IsUnlocked(ctx context.Context, id string) (bool, error) {
	return r.c.SIsMember(ctx, r.key(), id)
}

// ---- 组合 ----

// EventRegistries 依次写入多个注册表，返回第一个错误但不中断后续写入。
type EventRegistries []EventRegistry

// Unlock 解锁事件。
func (rs EventRegistries) Unlock(id string) error {
	var first error
	for _, r := range rs {
		if err := r.Unlock(id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Lock 锁定事件。
func (rs EventRegistries) Lock(id string) error {
	var first error
	for _, r := range rs {
		if err := r.Lock(id); err != nil && first == nil {
			first = err
		}
	}
	return first
}
