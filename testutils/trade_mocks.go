package testutils

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/shopspring/decimal"

	"stock-game-frontend/backend"
	"stock-game-frontend/models"
)

// TransactCall is one order the mock backend received.
type TransactCall struct {
	Token          string
	Side           models.Side
	Symbol         string
	Quantity       int64
	IdempotencyKey string
}

// MockTradeBackend simulates the trading and portfolio endpoints.
type MockTradeBackend struct {
	TransactMessage string
	TransactErr     error
	// Release, when set, holds Transact until it is closed.
	Release chan struct{}

	Prices       map[string]decimal.Decimal
	BalanceValue decimal.Decimal
	AssetsTotal  decimal.Decimal
	HoldingList  []models.Holding
	PortfolioErr error

	Transacts      []TransactCall
	PriceCalls     int
	PortfolioCalls int
	Mu             sync.Mutex
}

func (m *MockTradeBackend) Transact(ctx context.Context, token string, side models.Side, symbol string, quantity int64, key string) (string, error) {
	m.Mu.Lock()
	m.Transacts = append(m.Transacts, TransactCall{Token: token, Side: side, Symbol: symbol, Quantity: quantity, IdempotencyKey: key})
	release := m.Release
	m.Mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.TransactErr != nil {
		return "", m.TransactErr
	}
	return m.TransactMessage, nil
}

func (m *MockTradeBackend) StockPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.PriceCalls++
	p, ok := m.Prices[symbol]
	if !ok {
		return decimal.Zero, backend.ErrNotFound
	}
	return p, nil
}

func (m *MockTradeBackend) Balance(ctx context.Context, token string) (decimal.Decimal, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.PortfolioCalls++
	return m.BalanceValue, m.PortfolioErr
}

func (m *MockTradeBackend) AssetsValue(ctx context.Context, token string) (decimal.Decimal, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.AssetsTotal, m.PortfolioErr
}

func (m *MockTradeBackend) Holdings(ctx context.Context, token string) ([]models.Holding, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.PortfolioErr != nil {
		return nil, m.PortfolioErr
	}
	return append([]models.Holding(nil), m.HoldingList...), nil
}

func (m *MockTradeBackend) SetBalance(d decimal.Decimal) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.BalanceValue = d
}

func (m *MockTradeBackend) TransactCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Transacts)
}

func (m *MockTradeBackend) PortfolioLoads() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.PortfolioCalls
}

func (m *MockTradeBackend) PriceCallCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.PriceCalls
}

// StaticQuotes is a fixed quote table.
type StaticQuotes map[string]models.Quote

func (s StaticQuotes) Quote(symbol string) (models.Quote, bool) {
	q, ok := s[symbol]
	return q, ok
}

// MockForwarder records admin commands and answers with a fixed response.
type MockForwarder struct {
	Status int
	Body   json.RawMessage
	Err    error

	Path  string
	Token string
	Sent  json.RawMessage
}

func (m *MockForwarder) Forward(ctx context.Context, token, path string, body json.RawMessage) (int, json.RawMessage, error) {
	m.Path, m.Token, m.Sent = path, token, body
	if m.Err != nil {
		return 0, nil, m.Err
	}
	return m.Status, m.Body, nil
}

// MockCommunity serves fixed shop and news data.
type MockCommunity struct {
	TitleList []models.Title
	Current   models.TitleInfo
	Articles  []models.NewsArticle
	Err       error
}

func (m *MockCommunity) Titles(ctx context.Context) ([]models.Title, error) {
	return m.TitleList, m.Err
}

func (m *MockCommunity) CurrentTitle(ctx context.Context, token string) (models.TitleInfo, error) {
	return m.Current, m.Err
}

func (m *MockCommunity) News(ctx context.Context) ([]models.NewsArticle, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Articles, nil
}
