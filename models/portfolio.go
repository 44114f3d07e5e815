package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Holding is one line of /portfolio/stocks. Price is null when the backend
// no longer knows the symbol.
type Holding struct {
	StockSymbol string              `json:"stock_symbol"`
	Quantity    int64               `json:"quantity"`
	Price       decimal.NullDecimal `json:"price"`
}

// PortfolioSnapshot is a read cache of the backend's balance and positions.
type PortfolioSnapshot struct {
	Balance     decimal.Decimal  `json:"balance"`
	AssetsValue decimal.Decimal  `json:"assets_value"`
	Holdings    []Holding        `json:"holdings"`
	Positions   map[string]int64 `json:"positions"`
	LoadedAt    time.Time        `json:"loaded_at"`
}

// Trade journal statuses.
const (
	TradePending   = "pending"
	TradeConfirmed = "confirmed"
	TradeRejected  = "rejected"
	TradeFailed    = "failed"
)

// TradeRecord is the local journal entry for one submission.
type TradeRecord struct {
	gorm.Model
	IdempotencyKey string          `gorm:"uniqueIndex;size:64" json:"idempotency_key"`
	Username       string          `gorm:"index" json:"username"`
	Side           Side            `json:"side"`
	Symbol         string          `gorm:"index" json:"symbol"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:numeric" json:"unit_price"`
	Status         string          `json:"status"`
	Message        string          `json:"message"`
}
