package trade_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"stock-game-frontend/models"
	"stock-game-frontend/testutils"
	"stock-game-frontend/trade"
)

func TestPortfolioCache_LoadAndInvalidate(t *testing.T) {
	mb := &testutils.MockTradeBackend{
		BalanceValue: testutils.Dec("100.50"),
		AssetsTotal:  testutils.Dec("300"),
		HoldingList: []models.Holding{
			{StockSymbol: "AAPL", Quantity: 2},
			{StockSymbol: "MSFT", Quantity: 1},
		},
	}
	cache := trade.NewPortfolioCache(mb)
	ctx := context.Background()

	if _, ok := cache.Get("sid"); ok {
		t.Fatal("Cache should start empty")
	}
	snap, err := cache.Load(ctx, "sid", "tok")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !snap.Balance.Equal(testutils.Dec("100.50")) || !snap.AssetsValue.Equal(testutils.Dec("300")) {
		t.Errorf("Unexpected totals %+v", snap)
	}
	if snap.Positions["AAPL"] != 2 || snap.Positions["MSFT"] != 1 {
		t.Errorf("Unexpected positions %v", snap.Positions)
	}

	snap.Positions["AAPL"] = 99
	cached, ok := cache.Get("sid")
	if !ok || cached.Positions["AAPL"] != 2 {
		t.Error("Callers must not be able to write into the cache")
	}

	cache.Invalidate("sid")
	if _, ok := cache.Get("sid"); ok {
		t.Error("Expected entry to be gone after Invalidate")
	}
}

func TestPortfolioCache_FailedLoadKeepsEntry(t *testing.T) {
	mb := &testutils.MockTradeBackend{BalanceValue: testutils.Dec("10")}
	cache := trade.NewPortfolioCache(mb)
	ctx := context.Background()
	cache.Load(ctx, "sid", "tok")

	mb.Mu.Lock()
	mb.PortfolioErr = errors.New("down")
	mb.Mu.Unlock()

	if _, err := cache.Load(ctx, "sid", "tok"); err == nil {
		t.Fatal("Expected the load to fail")
	}
	if snap, ok := cache.Get("sid"); !ok || !snap.Balance.Equal(testutils.Dec("10")) {
		t.Error("A failed load should leave the previous snapshot")
	}
}

func TestPortfolioCache_Sweep(t *testing.T) {
	cache := trade.NewPortfolioCache(&testutils.MockTradeBackend{})
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if _, err := cache.Load(ctx, id, "tok"); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}

	if n := cache.Sweep(time.Now().Add(-time.Hour)); n != 0 || cache.Len() != 2 {
		t.Errorf("Fresh snapshots should stay, swept %d", n)
	}
	if n := cache.Sweep(time.Now().Add(time.Second)); n != 2 || cache.Len() != 0 {
		t.Errorf("Idle snapshots should go, swept %d, %d left", n, cache.Len())
	}
}
