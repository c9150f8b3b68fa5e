package model

import (
	"time"

	"gorm.io/datatypes"
)

// BacklogEntry is one completed paragraph of dialogue, kept for the
// read-back log.
type BacklogEntry struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Profile   string         `gorm:"index:idx_backlog_profile;size:64;not null" json:"profile"`
	Script    string         `gorm:"size:128" json:"script"`
	StepID    int            `json:"step_id"`
	Speaker   string         `gorm:"size:64" json:"speaker"`
	Text      string         `gorm:"type:text" json:"text"`
	Meta      datatypes.JSON `json:"meta"` // {"scrolled": true, "blocks": 2}
	CreatedAt time.Time      `gorm:"index:idx_backlog_created;autoCreateTime:milli" json:"created_at"`
}

func (BacklogEntry) TableName() string { return "backlog_entries" }
