package models

import (
	"time"

	"gorm.io/datatypes"
)

// RoundToken is one entry of the token set frozen into a round at creation.
// Display fields are copied so later allowlist or cache changes cannot alter
// what a running round shows.
type RoundToken struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	LogoURI string `json:"logo_uri,omitempty"`
}

// Round is one scoring window. EndAt is exclusive; at most one round is
// active (StartAt <= now < EndAt) at any instant.
type Round struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	StartAt   time.Time      `gorm:"type:timestamptz;not null;index"`
	EndAt     time.Time      `gorm:"type:timestamptz;not null;index"`
	Tokens    datatypes.JSON `gorm:"type:jsonb;not null"`
	Settled   bool           `gorm:"not null;default:false;index"`
	CreatedAt time.Time      `gorm:"type:timestamptz;autoCreateTime"`
}

func (Round) TableName() string {
	return "rounds"
}

// Active reports whether the round window covers t.
func (r Round) Active(t time.Time) bool {
	return !t.Before(r.StartAt) && t.Before(r.EndAt)
}
