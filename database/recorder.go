package database

import (
	"context"
	"time"

	"go.uber.org/zap"

	"stock-game-frontend/feed"
	"stock-game-frontend/models"
)

// PriceRecorder writes every applied snapshot to the quote history off the
// merge goroutine. When the queue is full the snapshot is dropped; the next
// poll supersedes it.
type PriceRecorder struct {
	store  Store
	queue  chan []models.StockPrice
	logger *zap.Logger
	now    func() time.Time
}

func NewPriceRecorder(store Store, queueSize int, logger *zap.Logger) *PriceRecorder {
	if queueSize <= 0 {
		queueSize = 8
	}
	return &PriceRecorder{
		store:  store,
		queue:  make(chan []models.StockPrice, queueSize),
		logger: logger,
		now:    time.Now,
	}
}

// OnChange is a Synchronizer listener. Push updates are ignored.
func (r *PriceRecorder) OnChange(c feed.Change) {
	if len(c.Snapshot) == 0 {
		return
	}
	at := r.now().UTC()
	rows := make([]models.StockPrice, 0, len(c.Snapshot))
	for _, q := range c.Snapshot {
		ts := q.LastUpdate.Time
		if ts.IsZero() {
			ts = at
		}
		rows = append(rows, models.StockPrice{Symbol: q.Symbol, Price: q.Price, Change: q.Change, Timestamp: ts})
	}

	select {
	case r.queue <- rows:
	default:
		r.logger.Warn("Dropping price snapshot, recorder is behind", zap.Int("quotes", len(rows)))
	}
}

// Run drains the queue until ctx is cancelled.
func (r *PriceRecorder) Run(ctx context.Context) {
	for {
		select {
		case rows := <-r.queue:
			// Background context so a shutdown does not cut a batch in half.
			if err := r.store.RecordPrices(context.Background(), rows); err != nil {
				r.logger.Error("Failed to record prices", zap.Error(err), zap.Int("quotes", len(rows)))
				continue
			}
			r.logger.Debug("Recorded prices", zap.Int("quotes", len(rows)))
		case <-ctx.Done():
			return
		}
	}
}
