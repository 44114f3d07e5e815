package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"stock-game-frontend/models"
)

// LeaderboardSource returns the backend's current ranking.
type LeaderboardSource interface {
	Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error)
}

// Leaderboard keeps the last ranking fetched from the backend. Like the quote
// table, a failed refresh keeps what was there.
type Leaderboard struct {
	source   LeaderboardSource
	interval time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	entries  []models.LeaderboardEntry
	loadedAt time.Time
}

func NewLeaderboard(source LeaderboardSource, interval time.Duration, logger *zap.Logger) *Leaderboard {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Leaderboard{
		source:   source,
		interval: interval,
		logger:   logger,
		entries:  []models.LeaderboardEntry{},
	}
}

func (l *Leaderboard) Refresh(ctx context.Context) error {
	entries, err := l.source.Leaderboard(ctx)
	if err != nil {
		l.logger.Warn("Leaderboard refresh failed, keeping current ranking", zap.Error(err))
		return fmt.Errorf("loading leaderboard: %w", err)
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}

	l.mu.Lock()
	l.entries = entries
	l.loadedAt = time.Now().UTC()
	l.mu.Unlock()
	return nil
}

// Entries returns a copy of the ranking and when it was fetched.
func (l *Leaderboard) Entries() ([]models.LeaderboardEntry, time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.LeaderboardEntry, len(l.entries))
	copy(out, l.entries)
	return out, l.loadedAt
}

// Run refreshes the ranking every interval until ctx is cancelled.
func (l *Leaderboard) Run(ctx context.Context) {
	l.Refresh(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}
