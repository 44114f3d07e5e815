package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// TradeOrder is a proposed transaction. UnitPrice is the last known quote and
// is advisory only; it is never sent to the backend.
type TradeOrder struct {
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// EstimatedTotal is quantity × unit price, for display.
func (o TradeOrder) EstimatedTotal() decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(o.Quantity))
}

// Receipt is the backend-confirmed outcome of a submitted order.
type Receipt struct {
	IdempotencyKey string             `json:"idempotency_key"`
	Symbol         string             `json:"symbol"`
	Side           Side               `json:"side"`
	Quantity       int64              `json:"quantity"`
	Message        string             `json:"message"`
	ConfirmedAt    time.Time          `json:"confirmed_at"`
	Portfolio      *PortfolioSnapshot `json:"portfolio,omitempty"`
}
