package database

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"

	"stock-game-frontend/models"
)

var (
	ErrInvalidTransaction = fmt.Errorf("invalid transaction")
	ErrInvalidData        = fmt.Errorf("invalid data, expected slice")
	ErrTradeNotFound      = errors.New("trade not found")
)

const priceBatchSize = 100

var _ Store = (*GormStore)(nil)

// GormStore keeps the journal and quote history in PostgreSQL.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the journal tables and returns a store over db.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrating journal tables: %w", err)
	}
	return &GormStore{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.TradeRecord{},
		&models.StockPrice{},
	)
}

func (s *GormStore) RecordTrade(ctx context.Context, rec *models.TradeRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("recording trade %s: %w", rec.IdempotencyKey, err)
	}
	return nil
}

func (s *GormStore) ResolveTrade(ctx context.Context, key, status, message string) error {
	res := s.db.WithContext(ctx).
		Model(&models.TradeRecord{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]interface{}{"status": status, "message": message})
	if res.Error != nil {
		return fmt.Errorf("resolving trade %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrTradeNotFound, key)
	}
	return nil
}

func (s *GormStore) TradesFor(ctx context.Context, username string, limit int) ([]models.TradeRecord, error) {
	var trades []models.TradeRecord
	err := s.db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at desc").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("listing trades for %s: %w", username, err)
	}
	return trades, nil
}

func (s *GormStore) RecordPrices(ctx context.Context, prices []models.StockPrice) error {
	if len(prices) == 0 {
		return nil
	}
	return CreateInBatches(s.db.WithContext(ctx), prices, priceBatchSize)
}

// CreateInBatches inserts a slice in chunks inside one transaction.
func CreateInBatches(db *gorm.DB, data interface{}, batchSize int) error {
	if batchSize <= 0 {
		return ErrInvalidTransaction
	}

	slice := reflect.ValueOf(data)
	if slice.Kind() != reflect.Slice {
		return ErrInvalidData
	}

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if tx.Error != nil {
		return tx.Error
	}

	total := slice.Len()
	for i := 0; i < total; i += batchSize {
		end := i + batchSize
		if end > total {
			end = total
		}

		chunk := slice.Slice(i, end).Interface()
		if err := tx.Create(chunk).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("batch insert failed: %w", err)
		}
	}

	return tx.Commit().Error
}
