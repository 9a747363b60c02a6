package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ResultPick is a pick with its resolved prices. PnLPercent is nil when the
// pick could not be resolved; such picks are excluded from the aggregate.
type ResultPick struct {
	Pick
	EntryPrice *decimal.Decimal `json:"entry_price,omitempty"`
	ExitPrice  *decimal.Decimal `json:"exit_price,omitempty"`
	PnLPercent *decimal.Decimal `json:"pnl_percent,omitempty"`
}

// RoundResult is the final settled score for one play, written exactly once
// at settlement. The upsert path exists only so a retried settlement rewrites
// identical values; it is never a way to change a score.
type RoundResult struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement"`
	RoundID    uint64          `gorm:"not null;uniqueIndex:uq_round_results_round_player,priority:1;index"`
	PlayerID   string          `gorm:"type:text;not null;uniqueIndex:uq_round_results_round_player,priority:2"`
	PlayerName string          `gorm:"type:text"`
	PnLPercent decimal.Decimal `gorm:"column:pnl_percent;type:numeric(20,8);not null"`
	Picks      datatypes.JSON  `gorm:"type:jsonb;not null"`
	SettledAt  time.Time       `gorm:"type:timestamptz;not null"`
}

func (RoundResult) TableName() string {
	return "round_results"
}
