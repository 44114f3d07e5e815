package models

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Quote is one stock's market state as published by the backend.
type Quote struct {
	Symbol     string          `json:"symbol"`
	Name       string          `json:"name"`
	Sector     string          `json:"sector"`
	Price      decimal.Decimal `json:"price"`
	Change     decimal.Decimal `json:"change"`
	Low        decimal.Decimal `json:"low"`
	High       decimal.Decimal `json:"high"`
	LastUpdate Timestamp       `json:"last_update"`
}

// QuotePatch is a push event for one symbol. Nil fields were not sent and
// leave the stored value alone.
type QuotePatch struct {
	Symbol     string           `json:"symbol"`
	Name       *string          `json:"name,omitempty"`
	Sector     *string          `json:"sector,omitempty"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	Change     *decimal.Decimal `json:"change,omitempty"`
	Low        *decimal.Decimal `json:"low,omitempty"`
	High       *decimal.Decimal `json:"high,omitempty"`
	LastUpdate *Timestamp       `json:"last_update,omitempty"`
}

// Apply overwrites the fields present in p.
func (q *Quote) Apply(p QuotePatch) {
	if p.Name != nil {
		q.Name = *p.Name
	}
	if p.Sector != nil {
		q.Sector = *p.Sector
	}
	if p.Price != nil {
		q.Price = *p.Price
	}
	if p.Change != nil {
		q.Change = *p.Change
	}
	if p.Low != nil {
		q.Low = *p.Low
	}
	if p.High != nil {
		q.High = *p.High
	}
	if p.LastUpdate != nil {
		q.LastUpdate = *p.LastUpdate
	}
}

// Timestamp accepts the formats the backend has been seen to emit:
// RFC 3339, HTTP dates, naive ISO datetimes and unix seconds.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	http.TimeFormat,
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if len(b) > 0 && b[0] != '"' {
		secs, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("models: invalid timestamp %s: %w", b, err)
		}
		whole := int64(secs)
		t.Time = time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC()
		return nil
	}

	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("models: invalid timestamp %s: %w", b, err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("models: unrecognized timestamp %q", s)
}

// StockPrice is one row of quote history, written after every snapshot.
type StockPrice struct {
	gorm.Model
	Symbol    string          `gorm:"index" json:"symbol"`
	Price     decimal.Decimal `gorm:"type:numeric" json:"price"`
	Change    decimal.Decimal `gorm:"type:numeric" json:"change"`
	Timestamp time.Time       `json:"timestamp"`
}
