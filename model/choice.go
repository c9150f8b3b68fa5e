package model

import (
	"time"

	"gorm.io/datatypes"
)

// ChoiceLog is one recorded player choice within a script.
type ChoiceLog struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Profile       string         `gorm:"index:idx_choice_script;size:64;not null" json:"profile"`
	Script        string         `gorm:"index:idx_choice_script;size:128;not null" json:"script"`
	Ordinal       int            `gorm:"not null" json:"ordinal"`
	SelectedIndex int            `gorm:"not null" json:"selected_index"`
	Text          string         `gorm:"size:512" json:"text"`
	Options       datatypes.JSON `json:"options"` // ["X", "Y", ...]
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (ChoiceLog) TableName() string { return "choice_logs" }
