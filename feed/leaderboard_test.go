package feed_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"stock-game-frontend/feed"
	"stock-game-frontend/models"
	"stock-game-frontend/testutils"
)

func TestLeaderboard_RefreshKeepsLastRankingOnFailure(t *testing.T) {
	source := &testutils.MockLeaderboardSource{Entries: []models.LeaderboardEntry{
		{Username: "alice", NetWorth: testutils.Dec("12000")},
		{Username: "bob", NetWorth: testutils.Dec("9000")},
	}}
	board := feed.NewLeaderboard(source, time.Minute, zap.NewNop())
	ctx := context.Background()

	if err := board.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	outage := errors.New("backend down")
	source.Set(nil, outage)
	if err := board.Refresh(ctx); !errors.Is(err, outage) {
		t.Errorf("Expected the outage to be reported, got %v", err)
	}

	entries, loadedAt := board.Entries()
	if len(entries) != 2 || entries[0].Username != "alice" {
		t.Errorf("Ranking should survive a failed refresh, got %+v", entries)
	}
	if loadedAt.IsZero() {
		t.Error("Expected a load time")
	}
}

func TestLeaderboard_EntriesStartEmpty(t *testing.T) {
	board := feed.NewLeaderboard(&testutils.MockLeaderboardSource{}, time.Minute, zap.NewNop())
	entries, _ := board.Entries()
	if entries == nil || len(entries) != 0 {
		t.Errorf("Expected an empty, non-nil ranking, got %#v", entries)
	}
}

func TestLeaderboard_RunPolls(t *testing.T) {
	source := &testutils.MockLeaderboardSource{Entries: []models.LeaderboardEntry{{Username: "alice"}}}
	board := feed.NewLeaderboard(source, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		board.Run(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	testutils.Eventually(t, time.Second, func() bool { return source.CallCount() >= 3 }, "leaderboard polled")
	source.Set([]models.LeaderboardEntry{{Username: "bob"}}, nil)
	testutils.Eventually(t, time.Second, func() bool {
		entries, _ := board.Entries()
		return len(entries) == 1 && entries[0].Username == "bob"
	}, "new ranking picked up")
}
