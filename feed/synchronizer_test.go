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

func TestSynchronizer_LoadSnapshot(t *testing.T) {
	source := &testutils.MockSnapshotSource{Quotes: []models.Quote{testutils.Quote("AAPL", "150", "0")}}
	s := feed.NewSynchronizer(source, nil, time.Minute, zap.NewNop())

	if err := s.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if q, ok := s.Quote("AAPL"); !ok || !q.Price.Equal(testutils.Dec("150")) {
		t.Errorf("Expected AAPL at 150, got %+v", q)
	}
}

func TestSynchronizer_FailedSnapshotKeepsTable(t *testing.T) {
	source := &testutils.MockSnapshotSource{Quotes: []models.Quote{testutils.Quote("AAPL", "150", "0")}}
	s := feed.NewSynchronizer(source, nil, time.Minute, zap.NewNop())
	ctx := context.Background()

	if err := s.LoadSnapshot(ctx); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	outage := errors.New("backend down")
	source.Set(nil, outage)
	if err := s.LoadSnapshot(ctx); !errors.Is(err, outage) {
		t.Errorf("Expected the outage to be reported, got %v", err)
	}
	if view := s.View(); len(view) != 1 || view[0].Symbol != "AAPL" {
		t.Errorf("Table should be untouched after a failed load, got %v", symbols(view))
	}
}

func TestSynchronizer_EmptySnapshotDoesNotClear(t *testing.T) {
	source := &testutils.MockSnapshotSource{Quotes: []models.Quote{testutils.Quote("AAPL", "150", "0")}}
	s := feed.NewSynchronizer(source, nil, time.Minute, zap.NewNop())
	ctx := context.Background()

	s.LoadSnapshot(ctx)
	source.Set([]models.Quote{}, nil)
	s.LoadSnapshot(ctx)

	if len(s.View()) != 1 {
		t.Error("An empty snapshot must not clear the table")
	}
}

func TestSynchronizer_NotifiesListeners(t *testing.T) {
	source := &testutils.MockSnapshotSource{Quotes: []models.Quote{testutils.Quote("AAPL", "150", "0")}}
	s := feed.NewSynchronizer(source, nil, time.Minute, zap.NewNop())

	var changes []feed.Change
	s.Subscribe(func(c feed.Change) { changes = append(changes, c) })

	s.LoadSnapshot(context.Background())
	s.ApplyPushUpdate(models.QuotePatch{Symbol: "AAPL", Price: testutils.DecPtr("151")})

	if len(changes) != 2 {
		t.Fatalf("Expected 2 changes, got %d", len(changes))
	}
	if changes[0].Snapshot == nil || changes[0].Updated != nil {
		t.Errorf("First change should be a snapshot")
	}
	if changes[1].Updated == nil || !changes[1].Updated.Price.Equal(testutils.Dec("151")) {
		t.Errorf("Second change should carry the merged AAPL row")
	}
	if len(changes[1].Table) != 1 {
		t.Errorf("Change should carry the projection")
	}
}

func TestSynchronizer_RunMergesPollAndPush(t *testing.T) {
	source := &testutils.MockSnapshotSource{Quotes: []models.Quote{testutils.Quote("AAPL", "150", "0")}}
	push := testutils.NewMockPushSource()
	s := feed.NewSynchronizer(source, push, 20*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	testutils.Eventually(t, time.Second, func() bool {
		_, ok := s.Quote("AAPL")
		return ok
	}, "initial snapshot applied")

	push.Patches <- models.QuotePatch{Symbol: "TSLA", Price: testutils.DecPtr("900")}
	testutils.Eventually(t, time.Second, func() bool {
		_, ok := s.Quote("TSLA")
		return ok
	}, "push update applied")

	// The poller keeps running and TSLA, absent from snapshots, is retained.
	calls := source.CallCount()
	testutils.Eventually(t, time.Second, func() bool {
		return source.CallCount() > calls+1
	}, "poller ticks")
	if _, ok := s.Quote("TSLA"); !ok {
		t.Error("TSLA should survive later snapshots")
	}
}

func TestSynchronizer_RunRetriesAfterFailure(t *testing.T) {
	source := &testutils.MockSnapshotSource{Err: errors.New("boom")}
	s := feed.NewSynchronizer(source, nil, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	testutils.Eventually(t, time.Second, func() bool { return source.CallCount() >= 2 }, "retry on next tick")
	source.Set([]models.Quote{testutils.Quote("AAPL", "150", "0")}, nil)
	testutils.Eventually(t, time.Second, func() bool {
		_, ok := s.Quote("AAPL")
		return ok
	}, "recovered after failure")
}

func TestSynchronizer_SetSort(t *testing.T) {
	source := &testutils.MockSnapshotSource{Quotes: []models.Quote{
		testutils.Quote("AAPL", "150", "0"),
		testutils.Quote("TSLA", "900", "0"),
	}}
	s := feed.NewSynchronizer(source, nil, time.Minute, zap.NewNop())
	s.LoadSnapshot(context.Background())

	s.SetSort(feed.Sort{Column: feed.ColumnPrice, Direction: feed.Desc})
	if got := symbols(s.View()); got[0] != "TSLA" {
		t.Errorf("Expected TSLA first, got %v", got)
	}
	if s.Sort().Column != feed.ColumnPrice {
		t.Errorf("Expected sort state to be kept")
	}
}
