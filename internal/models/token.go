package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Token is the latest cached snapshot for one token, upserted by market sync.
// Rows are never deleted; the address is the provider's contract address.
type Token struct {
	Address           string           `gorm:"primaryKey;type:text"`
	Symbol            string           `gorm:"type:text;not null"`
	Name              string           `gorm:"type:text"`
	LogoURI           string           `gorm:"type:text"`
	Price             *decimal.Decimal `gorm:"type:numeric(30,12)"`
	MarketCap         *decimal.Decimal `gorm:"type:numeric(30,2)"`
	Liquidity         *decimal.Decimal `gorm:"type:numeric(30,2)"`
	Volume24h         *decimal.Decimal `gorm:"type:numeric(30,2)"`
	PriceChange24hPct *float64         `gorm:"type:double precision"`
	Holders           *int64
	Top10HolderPct    *float64   `gorm:"type:double precision"`
	LaunchedAt        *time.Time `gorm:"type:timestamptz"`
	UpdatedAt         time.Time  `gorm:"type:timestamptz;not null"`
}

func (Token) TableName() string {
	return "token_cache"
}
