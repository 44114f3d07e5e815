package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stock-game-frontend/models"
)

var _ Store = (*MongoStore)(nil)

// MongoStore keeps the journal in the "trades" and "stock_prices" collections.
type MongoStore struct {
	client *mongo.Client
	trades *mongo.Collection
	prices *mongo.Collection
}

type tradeDoc struct {
	IdempotencyKey string    `bson:"idempotency_key"`
	Username       string    `bson:"username"`
	Side           string    `bson:"side"`
	Symbol         string    `bson:"symbol"`
	Quantity       int64     `bson:"quantity"`
	UnitPrice      string    `bson:"unit_price"`
	Status         string    `bson:"status"`
	Message        string    `bson:"message"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

type priceDoc struct {
	Symbol    string    `bson:"symbol"`
	Price     string    `bson:"price"`
	Change    string    `bson:"change"`
	Timestamp time.Time `bson:"timestamp"`
}

// NewMongoStore connects, pings and ensures the journal indexes.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetTimeout(30 * time.Second).
		SetConnectTimeout(30 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connection failed: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client: client,
		trades: db.Collection("trades"),
		prices: db.Collection("stock_prices"),
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.trades.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"idempotency_key": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("creating trade indexes: %w", err)
	}
	_, err = s.prices.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "symbol", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("creating price index: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) RecordTrade(ctx context.Context, rec *models.TradeRecord) error {
	now := time.Now().UTC()
	doc := tradeDoc{
		IdempotencyKey: rec.IdempotencyKey,
		Username:       rec.Username,
		Side:           string(rec.Side),
		Symbol:         rec.Symbol,
		Quantity:       rec.Quantity,
		UnitPrice:      rec.UnitPrice.String(),
		Status:         rec.Status,
		Message:        rec.Message,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.trades.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("recording trade %s: %w", rec.IdempotencyKey, err)
	}
	return nil
}

func (s *MongoStore) ResolveTrade(ctx context.Context, key, status, message string) error {
	res, err := s.trades.UpdateOne(ctx,
		bson.M{"idempotency_key": key},
		bson.M{"$set": bson.M{"status": status, "message": message, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("resolving trade %s: %w", key, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrTradeNotFound, key)
	}
	return nil
}

func (s *MongoStore) TradesFor(ctx context.Context, username string, limit int) ([]models.TradeRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.trades.Find(ctx, bson.M{"username": username}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing trades for %s: %w", username, err)
	}
	defer cursor.Close(ctx)

	var docs []tradeDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding trades for %s: %w", username, err)
	}

	trades := make([]models.TradeRecord, 0, len(docs))
	for _, d := range docs {
		trades = append(trades, d.record())
	}
	return trades, nil
}

func (s *MongoStore) RecordPrices(ctx context.Context, prices []models.StockPrice) error {
	if len(prices) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(prices))
	for _, p := range prices {
		docs = append(docs, priceDoc{
			Symbol:    p.Symbol,
			Price:     p.Price.String(),
			Change:    p.Change.String(),
			Timestamp: p.Timestamp.UTC(),
		})
	}
	if _, err := s.prices.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("recording %d prices: %w", len(prices), err)
	}
	return nil
}

func (d tradeDoc) record() models.TradeRecord {
	rec := models.TradeRecord{
		IdempotencyKey: d.IdempotencyKey,
		Username:       d.Username,
		Side:           models.Side(d.Side),
		Symbol:         d.Symbol,
		Quantity:       d.Quantity,
		Status:         d.Status,
		Message:        d.Message,
	}
	rec.CreatedAt = d.CreatedAt
	rec.UpdatedAt = d.UpdatedAt
	rec.UnitPrice, _ = decimal.NewFromString(d.UnitPrice)
	return rec
}
