package testutils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stock-game-frontend/models"
)

// Quote builds a quote with a price and change given as strings.
func Quote(symbol, price, change string) models.Quote {
	return models.Quote{
		Symbol: symbol,
		Price:  decimal.RequireFromString(price),
		Change: decimal.RequireFromString(change),
	}
}

// Dec is a shorthand for decimal.RequireFromString.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DecPtr returns a pointer to a parsed decimal, for patches.
func DecPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// MockSnapshotSource serves a configurable quote list.
type MockSnapshotSource struct {
	Quotes []models.Quote
	Err    error
	Calls  int
	Mu     sync.Mutex
}

func (m *MockSnapshotSource) ListStocks(ctx context.Context) ([]models.Quote, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Quote, len(m.Quotes))
	copy(out, m.Quotes)
	return out, nil
}

func (m *MockSnapshotSource) Set(quotes []models.Quote, err error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Quotes = quotes
	m.Err = err
}

func (m *MockSnapshotSource) CallCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Calls
}

// MockPushSource forwards whatever the test writes to Patches.
type MockPushSource struct {
	Patches chan models.QuotePatch
}

func NewMockPushSource() *MockPushSource {
	return &MockPushSource{Patches: make(chan models.QuotePatch)}
}

func (m *MockPushSource) Stream(ctx context.Context, out chan<- models.QuotePatch) error {
	for {
		select {
		case p := <-m.Patches:
			select {
			case out <- p:
			case <-ctx.Done():
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Eventually polls cond until it holds or the timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}

// MockLeaderboardSource serves a configurable ranking.
type MockLeaderboardSource struct {
	Entries []models.LeaderboardEntry
	Err     error
	Calls   int
	Mu      sync.Mutex
}

func (m *MockLeaderboardSource) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.LeaderboardEntry, len(m.Entries))
	copy(out, m.Entries)
	return out, nil
}

func (m *MockLeaderboardSource) Set(entries []models.LeaderboardEntry, err error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Entries = entries
	m.Err = err
}

func (m *MockLeaderboardSource) CallCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Calls
}
