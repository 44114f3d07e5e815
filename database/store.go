package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"stock-game-frontend/config"
	"stock-game-frontend/models"
)

// Store is the local trade journal and quote history. Nothing in it is
// authoritative; the backend owns balances and positions.
type Store interface {
	RecordTrade(ctx context.Context, rec *models.TradeRecord) error
	ResolveTrade(ctx context.Context, key, status, message string) error
	TradesFor(ctx context.Context, username string, limit int) ([]models.TradeRecord, error)
	RecordPrices(ctx context.Context, prices []models.StockPrice) error
}

// Open builds the store selected by cfg.Journal.Driver. The returned close
// function releases the underlying connection.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, func(context.Context) error, error) {
	switch cfg.Journal.Driver {
	case "postgres":
		db, err := config.InitDB(cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		store, err := NewGormStore(db)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Trade journal on PostgreSQL", zap.String("host", cfg.DB.Host), zap.String("db", cfg.DB.Name))
		return store, func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}, nil

	case "mongo":
		store, err := NewMongoStore(ctx, cfg.Journal.MongoURI, cfg.Journal.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Trade journal on MongoDB", zap.String("db", cfg.Journal.MongoDB))
		return store, store.Close, nil

	case "none", "":
		logger.Info("Trade journal disabled")
		return NopStore{}, func(context.Context) error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown journal driver %q", cfg.Journal.Driver)
}

// NopStore discards everything.
type NopStore struct{}

func (NopStore) RecordTrade(context.Context, *models.TradeRecord) error { return nil }
func (NopStore) ResolveTrade(context.Context, string, string, string) error { return nil }
func (NopStore) RecordPrices(context.Context, []models.StockPrice) error { return nil }
func (NopStore) TradesFor(context.Context, string, int) ([]models.TradeRecord, error) {
	return nil, nil
}
