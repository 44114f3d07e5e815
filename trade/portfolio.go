package trade

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"stock-game-frontend/models"
)

// PortfolioSource reads the backend's authoritative portfolio.
type PortfolioSource interface {
	Balance(ctx context.Context, token string) (decimal.Decimal, error)
	AssetsValue(ctx context.Context, token string) (decimal.Decimal, error)
	Holdings(ctx context.Context, token string) ([]models.Holding, error)
}

// PortfolioCache holds one read-only snapshot per session. It is filled only
// from the backend; trades never write to it directly.
type PortfolioCache struct {
	source PortfolioSource
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]*models.PortfolioSnapshot
}

func NewPortfolioCache(source PortfolioSource) *PortfolioCache {
	return &PortfolioCache{
		source:  source,
		now:     time.Now,
		entries: make(map[string]*models.PortfolioSnapshot),
	}
}

func (c *PortfolioCache) Get(sessionID string) (*models.PortfolioSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.entries[sessionID]
	if !ok {
		return nil, false
	}
	return cloneSnapshot(snap), true
}

// Load fetches balance, assets value and holdings concurrently and replaces
// the session's entry. A failed load leaves the cache as it was.
func (c *PortfolioCache) Load(ctx context.Context, sessionID, token string) (*models.PortfolioSnapshot, error) {
	var (
		balance, assets decimal.Decimal
		holdings        []models.Holding
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = c.source.Balance(gctx, token)
		return err
	})
	g.Go(func() error {
		var err error
		assets, err = c.source.AssetsValue(gctx, token)
		return err
	})
	g.Go(func() error {
		var err error
		holdings, err = c.source.Holdings(gctx, token)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	positions := make(map[string]int64, len(holdings))
	for _, h := range holdings {
		positions[h.StockSymbol] += h.Quantity
	}
	if holdings == nil {
		holdings = []models.Holding{}
	}

	snap := &models.PortfolioSnapshot{
		Balance:     balance,
		AssetsValue: assets,
		Holdings:    holdings,
		Positions:   positions,
		LoadedAt:    c.now().UTC(),
	}

	c.mu.Lock()
	c.entries[sessionID] = snap
	c.mu.Unlock()
	return cloneSnapshot(snap), nil
}

func (c *PortfolioCache) Invalidate(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
}

// Sweep drops snapshots loaded before cutoff and returns how many went.
func (c *PortfolioCache) Sweep(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, snap := range c.entries {
		if snap.LoadedAt.Before(cutoff) {
			delete(c.entries, id)
			n++
		}
	}
	return n
}

func (c *PortfolioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cloneSnapshot(s *models.PortfolioSnapshot) *models.PortfolioSnapshot {
	out := *s
	out.Holdings = make([]models.Holding, len(s.Holdings))
	copy(out.Holdings, s.Holdings)
	out.Positions = make(map[string]int64, len(s.Positions))
	for k, v := range s.Positions {
		out.Positions[k] = v
	}
	return &out
}
