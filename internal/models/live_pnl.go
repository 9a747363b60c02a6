package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// LivePnL is the transient mark-to-market view for an open round. Rows are
// refreshed on every scheduler tick and deleted once the round settles; they
// are a cache of a derived value, never the durable truth.
type LivePnL struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement"`
	RoundID    uint64          `gorm:"not null;uniqueIndex:uq_live_pnl_round_player,priority:1;index"`
	PlayerID   string          `gorm:"type:text;not null;uniqueIndex:uq_live_pnl_round_player,priority:2"`
	PnLPercent decimal.Decimal `gorm:"column:pnl_percent;type:numeric(20,8);not null"`
	Detail     datatypes.JSON  `gorm:"type:jsonb;not null"`
	UpdatedAt  time.Time       `gorm:"type:timestamptz;not null"`
}

func (LivePnL) TableName() string {
	return "live_pnl"
}
