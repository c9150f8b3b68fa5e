// Package backlog records completed dialogue for the read-back log. Entries
// are written to the database asynchronously in batches and mirrored into a
// bounded cache list for quick access to recent lines.
package backlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kasuganosora/scenarioplayer/cache"
	"github.com/kasuganosora/scenarioplayer/config"
	"github.com/kasuganosora/scenarioplayer/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry is one completed paragraph.
type Entry struct {
	Profile string `json:"profile"`
	Script  string `json:"script"`
	StepID  int    `json:"step_id"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	// Scrolled marks paragraphs that were appended to a scroll run.
	Scrolled bool `json:"scrolled,omitempty"`
}

type meta struct {
	Scrolled bool `json:"scrolled"`
}

// Service writes entries asynchronously in batches.
type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	cfg    config.BacklogConfig
	ch     chan *model.BacklogEntry
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a Service and starts its background worker. c may be nil to
// skip the recent-lines mirror.
func New(db *gorm.DB, c cache.Cache, cfg config.BacklogConfig, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	svc := &Service{
		db:     db,
		cache:  c,
		cfg:    cfg,
		ch:     make(chan *model.BacklogEntry, 1024),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues an entry for async write. It never blocks; a full queue
// drops the entry with a warning.
func (svc *Service) Log(e Entry) {
	m, _ := json.Marshal(meta{Scrolled: e.Scrolled})
	row := &model.BacklogEntry{
		Profile: e.Profile,
		Script:  e.Script,
		StepID:  e.StepID,
		Speaker: e.Speaker,
		Text:    e.Text,
		Meta:    datatypes.JSON(m),
	}
	select {
	case svc.ch <- row:
	default:
		svc.logger.Warn("backlog channel full, dropping entry",
			zap.String("script", e.Script),
			zap.Int("step", e.StepID))
	}
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	select {
	case <-svc.stopCh:
	default:
		close(svc.stopCh)
	}
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(svc.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]*model.BacklogEntry, 0, svc.cfg.BatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("backlog batch write failed", zap.Error(err))
		}
		svc.mirror(batch)
		batch = batch[:0]
	}

	for {
		select {
		case row := <-svc.ch:
			batch = append(batch, row)
			if len(batch) >= svc.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case row := <-svc.ch:
					batch = append(batch, row)
				default:
					flush()
					return
				}
			}
		}
	}
}

func recentKey(profile string) string { return "backlog:" + profile }

// mirror pushes the batch onto each profile's recent list, newest first.
func (svc *Service) mirror(batch []*model.BacklogEntry) {
	if svc.cache == nil || svc.cfg.RecentLines <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	byProfile := map[string][]string{}
	var order []string
	for _, row := range batch {
		line, err := json.Marshal(toEntry(row))
		if err != nil {
			continue
		}
		if _, ok := byProfile[row.Profile]; !ok {
			order = append(order, row.Profile)
		}
		byProfile[row.Profile] = append(byProfile[row.Profile], string(line))
	}
	for _, p := range order {
		key := recentKey(p)
		if err := svc.cache.PushCapped(ctx, key, int64(svc.cfg.RecentLines), byProfile[p]...); err != nil {
			svc.logger.Warn("backlog mirror push failed", zap.String("profile", p), zap.Error(err))
		}
	}
}

func toEntry(row *model.BacklogEntry) Entry {
	var m meta
	_ = json.Unmarshal(row.Meta, &m)
	return Entry{
		Profile:  row.Profile,
		Script:   row.Script,
		StepID:   row.StepID,
		Speaker:  row.Speaker,
		Text:     row.Text,
		Scrolled: m.Scrolled,
	}
}

// Recent returns up to n mirrored entries for profile, newest first.
func (svc *Service) Recent(ctx context.Context, profile string, n int) ([]Entry, error) {
	if svc.cache == nil || n <= 0 {
		return nil, nil
	}
	lines, err := svc.cache.LRange(ctx, recentKey(profile), 0, int64(n-1))
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("backlog: recent: %w", err)
	}
	out := make([]Entry, 0, len(lines))
	for _, l := range lines {
		var e Entry
		if err := json.Unmarshal([]byte(l), &e); err != nil {
			svc.logger.Warn("backlog mirror entry undecodable", zap.Error(err))
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// List returns the stored entries of one script for profile in write order.
func (svc *Service) List(ctx context.Context, profile, script string) ([]Entry, error) {
	var rows []model.BacklogEntry
	err := svc.db.WithContext(ctx).
		Where("profile = ? AND script = ?", profile, script).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("backlog: list: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for i := range rows {
		out = append(out, toEntry(&rows[i]))
	}
	return out, nil
}
