package model

import "time"

// StoryFlag stores one persisted story flag for a profile (save slot).
// Kind mirrors flag.Kind (0=bool 1=int 2=string); Value is the rendered value.
type StoryFlag struct {
	Profile   string    `gorm:"primaryKey;size:64" json:"profile"`
	Name      string    `gorm:"primaryKey;size:128" json:"name"`
	Kind      int       `gorm:"not null;default:0" json:"kind"`
	Value     string    `gorm:"size:512" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StoryFlag) TableName() string { return "story_flags" }

// EventUnlock records whether a gallery/story event is unlocked for a profile.
type EventUnlock struct {
	Profile   string    `gorm:"primaryKey;size:64" json:"profile"`
	EventID   string    `gorm:"primaryKey;size:128" json:"event_id"`
	Unlocked  bool      `json:"unlocked"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (EventUnlock) TableName() string { return "event_unlocks" }
