package testutils

import (
	"context"
	"fmt"
	"sync"

	"stock-game-frontend/models"
)

// MockStore is an in-memory journal.
type MockStore struct {
	Trades []models.TradeRecord
	Prices [][]models.StockPrice
	Err    error
	Mu     sync.Mutex
}

func (m *MockStore) RecordTrade(ctx context.Context, rec *models.TradeRecord) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Trades = append(m.Trades, *rec)
	return nil
}

func (m *MockStore) ResolveTrade(ctx context.Context, key, status, message string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i := range m.Trades {
		if m.Trades[i].IdempotencyKey == key {
			m.Trades[i].Status = status
			m.Trades[i].Message = message
			return nil
		}
	}
	return fmt.Errorf("trade %s not found", key)
}

func (m *MockStore) TradesFor(ctx context.Context, username string, limit int) ([]models.TradeRecord, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.TradeRecord
	for i := len(m.Trades) - 1; i >= 0; i-- {
		if m.Trades[i].Username == username {
			out = append(out, m.Trades[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockStore) RecordPrices(ctx context.Context, prices []models.StockPrice) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Prices = append(m.Prices, prices)
	return nil
}

// TradeList returns a copy of the recorded trades.
func (m *MockStore) TradeList() []models.TradeRecord {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return append([]models.TradeRecord(nil), m.Trades...)
}

// PriceBatches reports how many snapshots were recorded.
func (m *MockStore) PriceBatches() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Prices)
}
