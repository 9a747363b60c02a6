package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Pick is one directional bet inside a play. Display fields are carried for
// card rendering so results stay renderable after the cache moves on.
type Pick struct {
	Address   string `json:"address"`
	Symbol    string `json:"symbol"`
	Name      string `json:"name,omitempty"`
	LogoURI   string `json:"logo_uri,omitempty"`
	Direction string `json:"direction"`
}

// Play is one player's submission for one round. The (round_id, player_id)
// unique index is the storage-level guard against double submission.
type Play struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement"`
	RoundID    uint64         `gorm:"not null;uniqueIndex:uq_plays_round_player,priority:1;index"`
	PlayerID   string         `gorm:"type:text;not null;uniqueIndex:uq_plays_round_player,priority:2"`
	PlayerName string         `gorm:"type:text"`
	ChatID     *int64         `gorm:"index"`
	Picks      datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time      `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Play) TableName() string {
	return "plays"
}
