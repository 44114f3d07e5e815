package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"stock-game-frontend/models"
)

const DefaultPollInterval = 10 * time.Second

// SnapshotSource returns the backend's full quote list.
type SnapshotSource interface {
	ListStocks(ctx context.Context) ([]models.Quote, error)
}

// PushSource streams quote patches until ctx is done, reconnecting on its own.
type PushSource interface {
	Stream(ctx context.Context, out chan<- models.QuotePatch) error
}

// Change describes one mutation applied to the table.
type Change struct {
	Snapshot []models.Quote // full reload, nil for push updates
	Updated  *models.Quote  // merged row for a push update
	Table    []models.Quote // projection after the change
}

type update struct {
	snapshot []models.Quote
	patch    *models.QuotePatch
}

// Synchronizer merges periodic snapshots and push updates into one Table.
// Both producers feed a single channel and a single goroutine applies them,
// so the last update to arrive wins.
type Synchronizer struct {
	table    *Table
	source   SnapshotSource
	push     PushSource
	interval time.Duration
	logger   *zap.Logger

	mu        sync.RWMutex
	listeners []func(Change)
}

func NewSynchronizer(source SnapshotSource, push PushSource, interval time.Duration, logger *zap.Logger) *Synchronizer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Synchronizer{
		table:    NewTable(),
		source:   source,
		push:     push,
		interval: interval,
		logger:   logger,
	}
}

// Subscribe registers fn to be called after every applied change. fn runs on
// the merge goroutine and must not block.
func (s *Synchronizer) Subscribe(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// LoadSnapshot fetches the full list and applies it. On failure the table is
// left as it was.
func (s *Synchronizer) LoadSnapshot(ctx context.Context) error {
	quotes, err := s.source.ListStocks(ctx)
	if err != nil {
		s.logger.Warn("Snapshot refresh failed, keeping current table", zap.Error(err))
		return fmt.Errorf("loading snapshot: %w", err)
	}
	s.applySnapshot(quotes)
	return nil
}

func (s *Synchronizer) ApplyPushUpdate(p models.QuotePatch) {
	q, ok := s.table.ApplyPatch(p)
	if !ok {
		s.logger.Debug("Ignoring push update without symbol")
		return
	}
	s.notify(Change{Updated: &q, Table: s.table.View()})
}

func (s *Synchronizer) SetSort(sort Sort) {
	s.table.SetSort(sort)
}

func (s *Synchronizer) Sort() Sort { return s.table.Sort() }

func (s *Synchronizer) View() []models.Quote { return s.table.View() }

func (s *Synchronizer) Quote(symbol string) (models.Quote, bool) {
	return s.table.Get(symbol)
}

// Run drives the poller and the push subscriber until ctx is cancelled.
func (s *Synchronizer) Run(ctx context.Context) error {
	updates := make(chan update, 64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.poll(ctx, updates)
	}()

	if s.push != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.subscribe(ctx, updates)
		}()
	}

	s.logger.Info("Feed synchronizer started", zap.Duration("poll_interval", s.interval), zap.Bool("push", s.push != nil))
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			s.logger.Info("Feed synchronizer stopped")
			return nil
		case u := <-updates:
			if u.patch != nil {
				s.ApplyPushUpdate(*u.patch)
			} else {
				s.applySnapshot(u.snapshot)
			}
		}
	}
}

func (s *Synchronizer) poll(ctx context.Context, out chan<- update) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		quotes, err := s.source.ListStocks(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return
		case err != nil:
			s.logger.Warn("Snapshot refresh failed, keeping current table", zap.Error(err))
		default:
			select {
			case out <- update{snapshot: quotes}:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Synchronizer) subscribe(ctx context.Context, out chan<- update) {
	patches := make(chan models.QuotePatch, 64)
	go func() {
		if err := s.push.Stream(ctx, patches); err != nil {
			s.logger.Error("Push channel stopped", zap.Error(err))
		}
	}()

	for {
		select {
		case p := <-patches:
			select {
			case out <- update{patch: &p}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Synchronizer) applySnapshot(quotes []models.Quote) {
	s.table.ApplySnapshot(quotes)
	s.logger.Debug("Applied snapshot", zap.Int("quotes", len(quotes)), zap.Int("table", s.table.Len()))
	s.notify(Change{Snapshot: quotes, Table: s.table.View()})
}

func (s *Synchronizer) notify(c Change) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fn := range s.listeners {
		fn(c)
	}
}
