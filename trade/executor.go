package trade

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stock-game-frontend/auth"
	"stock-game-frontend/backend"
	"stock-game-frontend/models"
)

var (
	ErrInvalidOrder       = errors.New("invalid order")
	ErrSubmitInFlight     = errors.New("an order is already being submitted")
	ErrNotFound           = backend.ErrNotFound
	ErrBackendUnavailable = backend.ErrUnavailable
	ErrUnauthenticated    = auth.ErrUnauthenticated
)

const (
	DefaultSubmitTimeout = 15 * time.Second
	priceKeyFormat       = "stock:%s:price"
)

// Backend is the part of the trading backend the executor calls.
type Backend interface {
	PortfolioSource
	Transact(ctx context.Context, token string, side models.Side, symbol string, quantity int64, idempotencyKey string) (string, error)
	StockPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// QuoteSource is the synchronized quote table.
type QuoteSource interface {
	Quote(symbol string) (models.Quote, bool)
}

// Journal records each submission locally. It is never consulted for
// balances.
type Journal interface {
	RecordTrade(ctx context.Context, rec *models.TradeRecord) error
	ResolveTrade(ctx context.Context, key, status, message string) error
}

type Options struct {
	SubmitTimeout time.Duration
	PriceCacheTTL time.Duration
}

type Executor struct {
	backend    Backend
	quotes     QuoteSource
	journal    Journal
	portfolios *PortfolioCache
	rdb        *redis.Client
	opts       Options
	logger     *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}

	now    func() time.Time
	newKey func() string
}

// NewExecutor wires an executor. rdb may be nil, in which case price lookups
// always go to the backend.
func NewExecutor(b Backend, quotes QuoteSource, journal Journal, portfolios *PortfolioCache, rdb *redis.Client, opts Options, logger *zap.Logger) *Executor {
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = DefaultSubmitTimeout
	}
	return &Executor{
		backend:    b,
		quotes:     quotes,
		journal:    journal,
		portfolios: portfolios,
		rdb:        rdb,
		opts:       opts,
		logger:     logger,
		inFlight:   make(map[string]struct{}),
		now:        time.Now,
		newKey:     uuid.NewString,
	}
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ParseQuantity accepts positive whole numbers only.
func ParseQuantity(text string) (int64, error) {
	text = strings.TrimSpace(text)
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: quantity must be a positive whole number", ErrInvalidOrder)
	}
	return n, nil
}

// Validate checks an order without any network call and returns it
// normalized.
func Validate(order models.TradeOrder) (models.TradeOrder, error) {
	order.Symbol = NormalizeSymbol(order.Symbol)
	switch {
	case order.Symbol == "":
		return order, fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	case !order.Side.Valid():
		return order, fmt.Errorf("%w: side must be buy or sell", ErrInvalidOrder)
	case order.Quantity <= 0:
		return order, fmt.Errorf("%w: quantity must be a positive whole number", ErrInvalidOrder)
	}
	return order, nil
}

// Quote returns the last synchronized quote for symbol.
func (e *Executor) Quote(symbol string) (models.Quote, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return models.Quote{}, fmt.Errorf("%w: empty symbol", ErrNotFound)
	}
	q, ok := e.quotes.Quote(symbol)
	if !ok {
		return models.Quote{}, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}
	return q, nil
}

// LookupPrice asks the backend for one symbol's price, caching it in Redis
// for a short while.
func (e *Executor) LookupPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return decimal.Zero, fmt.Errorf("%w: empty symbol", ErrNotFound)
	}
	key := fmt.Sprintf(priceKeyFormat, symbol)

	if e.rdb != nil {
		cached, err := e.rdb.Get(ctx, key).Result()
		if err == nil {
			if price, err := decimal.NewFromString(cached); err == nil {
				return price, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			e.logger.Warn("Price cache read failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	price, err := e.backend.StockPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	if e.rdb != nil && e.opts.PriceCacheTTL > 0 {
		if err := e.rdb.Set(ctx, key, price.String(), e.opts.PriceCacheTTL).Err(); err != nil {
			e.logger.Warn("Failed to cache price", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return price, nil
}

// Submit sends a validated order to the backend as the session's user. Only
// one order per session may be in flight.
func (e *Executor) Submit(ctx context.Context, actx *auth.AuthenticatedContext, order models.TradeOrder) (*models.Receipt, error) {
	if actx == nil || actx.Token == "" {
		return nil, ErrUnauthenticated
	}
	order, err := Validate(order)
	if err != nil {
		return nil, err
	}
	if q, ok := e.quotes.Quote(order.Symbol); ok {
		order.UnitPrice = q.Price
	}

	if !e.acquire(actx.SessionID) {
		return nil, ErrSubmitInFlight
	}
	defer e.release(actx.SessionID)

	key := e.newKey()
	log := e.logger.With(
		zap.String("user", actx.Username),
		zap.String("side", string(order.Side)),
		zap.String("symbol", order.Symbol),
		zap.Int64("quantity", order.Quantity),
		zap.String("idempotency_key", key),
	)

	rec := &models.TradeRecord{
		IdempotencyKey: key,
		Username:       actx.Username,
		Side:           order.Side,
		Symbol:         order.Symbol,
		Quantity:       order.Quantity,
		UnitPrice:      order.UnitPrice,
		Status:         models.TradePending,
	}
	if err := e.journal.RecordTrade(ctx, rec); err != nil {
		log.Error("Failed to journal trade", zap.Error(err))
	}

	submitCtx, cancel := context.WithTimeout(ctx, e.opts.SubmitTimeout)
	defer cancel()

	message, err := e.backend.Transact(submitCtx, actx.Token, order.Side, order.Symbol, order.Quantity, key)
	if err != nil {
		err = classify(err)
		status := models.TradeFailed
		var rejected *backend.RejectedError
		if errors.As(err, &rejected) {
			status = models.TradeRejected
		}
		e.resolve(ctx, log, key, status, err.Error())
		log.Warn("Trade failed", zap.Error(err))
		return nil, err
	}

	e.resolve(ctx, log, key, models.TradeConfirmed, message)
	log.Info("Trade confirmed", zap.String("message", message))

	receipt := &models.Receipt{
		IdempotencyKey: key,
		Symbol:         order.Symbol,
		Side:           order.Side,
		Quantity:       order.Quantity,
		Message:        message,
		ConfirmedAt:    e.now().UTC(),
	}

	e.portfolios.Invalidate(actx.SessionID)
	snapshot, err := e.portfolios.Load(ctx, actx.SessionID, actx.Token)
	if err != nil {
		log.Warn("Portfolio reload after trade failed", zap.Error(err))
	} else {
		receipt.Portfolio = snapshot
	}
	return receipt, nil
}

// Portfolio reloads the session's snapshot from the backend. Every page load
// goes through here, so balance and assets value follow the market.
func (e *Executor) Portfolio(ctx context.Context, actx *auth.AuthenticatedContext) (*models.PortfolioSnapshot, error) {
	snap, err := e.portfolios.Load(ctx, actx.SessionID, actx.Token)
	if err != nil {
		return nil, classify(err)
	}
	return snap, nil
}

// CachedPortfolio returns the snapshot loaded earlier in this session,
// loading it only when there is none.
func (e *Executor) CachedPortfolio(ctx context.Context, actx *auth.AuthenticatedContext) (*models.PortfolioSnapshot, error) {
	if snap, ok := e.portfolios.Get(actx.SessionID); ok {
		return snap, nil
	}
	snap, err := e.portfolios.Load(ctx, actx.SessionID, actx.Token)
	if err != nil {
		return nil, classify(err)
	}
	return snap, nil
}

// Forget drops per-session state once the session has ended.
func (e *Executor) Forget(sessionID string) {
	e.portfolios.Invalidate(sessionID)
}

// Sweep drops per-session state idle since before cutoff, for sessions that
// expired without the browser coming back.
func (e *Executor) Sweep(cutoff time.Time) int {
	return e.portfolios.Sweep(cutoff)
}

func (e *Executor) acquire(sessionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[sessionID]; busy {
		return false
	}
	e.inFlight[sessionID] = struct{}{}
	return true
}

func (e *Executor) release(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, sessionID)
}

func (e *Executor) resolve(ctx context.Context, log *zap.Logger, key, status, message string) {
	if err := e.journal.ResolveTrade(context.WithoutCancel(ctx), key, status, message); err != nil {
		log.Error("Failed to resolve journaled trade", zap.Error(err))
	}
}

// classify maps backend failures onto the executor's errors. Rejections pass
// through untouched so their message reaches the user verbatim.
func classify(err error) error {
	var rejected *backend.RejectedError
	switch {
	case errors.As(err, &rejected):
		return rejected
	case errors.Is(err, backend.ErrUnauthorized):
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrBackendUnavailable):
		return err
	}
	// Timeouts and anything unexpected count as an outage.
	return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}
