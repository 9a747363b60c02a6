package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one sample of the append-only per-token price series.
// Re-ingesting an existing (address, ts) pair is a no-op.
type PricePoint struct {
	ID      uint64          `gorm:"primaryKey;autoIncrement"`
	Address string          `gorm:"type:text;not null;uniqueIndex:uq_token_history_addr_ts,priority:1;index"`
	Ts      time.Time       `gorm:"type:timestamptz;not null;uniqueIndex:uq_token_history_addr_ts,priority:2"`
	Price   decimal.Decimal `gorm:"type:numeric(30,12);not null"`
}

func (PricePoint) TableName() string {
	return "token_history"
}
