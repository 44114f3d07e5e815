package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stock-game-frontend/models"
)

const (
	maxBodySize         = 4 << 20
	credentialsVerified = "Credentials verified"
	userRegistered      = "User registered successfully"
)

// Credentials is what the backend issues for a verified user.
type Credentials struct {
	Token   string
	IsAdmin bool
}

// Client speaks the trading backend's HTTP contract. It holds no per-user state.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type authResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Token   string `json:"token"`
	IsAdmin bool   `json:"isAdmin"`
}

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// VerifyCredentials exchanges a username and password for a bearer token.
// Every non-success answer is ErrInvalidCredentials, whatever the reason.
func (c *Client) VerifyCredentials(ctx context.Context, username, password string) (*Credentials, error) {
	status, raw, err := c.send(ctx, http.MethodPost, "/auth/verify_credentials", "", nil,
		map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, ErrInvalidCredentials
	}

	var resp authResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, ErrInvalidCredentials
	}
	if resp.Message != credentialsVerified || resp.Token == "" {
		return nil, ErrInvalidCredentials
	}
	return &Credentials{Token: resp.Token, IsAdmin: resp.IsAdmin}, nil
}

// Register creates a user. The backend may or may not issue a token with the
// registration; callers verify credentials afterwards when Token is empty.
func (c *Client) Register(ctx context.Context, username, password string) (*Credentials, error) {
	status, raw, err := c.send(ctx, http.MethodPost, "/auth/register", "", nil,
		map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	if status == http.StatusConflict {
		return nil, ErrUsernameTaken
	}
	if err := classify(status, raw); err != nil {
		return nil, err
	}

	var resp authResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding register response: %w", err)
	}
	if resp.Message != userRegistered {
		msg := resp.Message
		if resp.Error != "" {
			msg = resp.Error
		}
		return nil, &RejectedError{Status: status, Message: msg}
	}
	return &Credentials{Token: resp.Token, IsAdmin: resp.IsAdmin}, nil
}

// ListStocks fetches the full quote snapshot.
func (c *Client) ListStocks(ctx context.Context) ([]models.Quote, error) {
	status, raw, err := c.send(ctx, http.MethodGet, "/stocks/list", "", nil, nil)
	if err != nil {
		return nil, err
	}
	if err := classify(status, raw); err != nil {
		return nil, err
	}

	var quotes []models.Quote
	if err := json.Unmarshal(raw, &quotes); err != nil {
		return nil, fmt.Errorf("decoding stock list: %w", err)
	}
	return quotes, nil
}

// StockPrice looks up the current price of one symbol.
func (c *Client) StockPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	status, raw, err := c.send(ctx, http.MethodGet, "/stocks/"+url.PathEscape(symbol), "", nil, nil)
	if err != nil {
		return decimal.Zero, err
	}
	if err := classify(status, raw); err != nil {
		return decimal.Zero, err
	}

	var resp struct {
		Price *decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("decoding price for %s: %w", symbol, err)
	}
	if resp.Price == nil {
		return decimal.Zero, ErrNotFound
	}
	return *resp.Price, nil
}

// DefaultConfirmation is reported for a 2xx trade answer that carries no message.
const DefaultConfirmation = "Transaction successful"

// Transact submits a buy or sell. The returned string is the backend's
// confirmation message.
func (c *Client) Transact(ctx context.Context, token string, side models.Side, symbol string, quantity int64, idempotencyKey string) (string, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set("Idempotency-Key", idempotencyKey)
	}
	body := map[string]any{"stock_symbol": symbol, "quantity": quantity}

	status, raw, err := c.send(ctx, http.MethodPost, "/transactions/"+string(side), token, header, body)
	if err != nil {
		return "", err
	}
	if err := classify(status, raw); err != nil {
		return "", err
	}

	// The trade has executed once the backend answers 2xx, whatever the body.
	var resp messageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Warn("Undecodable transaction confirmation", zap.String("symbol", symbol), zap.ByteString("body", raw), zap.Error(err))
		return DefaultConfirmation, nil
	}
	if resp.Error != "" {
		return "", &RejectedError{Status: status, Message: resp.Error}
	}
	if resp.Message == "" {
		return DefaultConfirmation, nil
	}
	return resp.Message, nil
}

func (c *Client) Balance(ctx context.Context, token string) (decimal.Decimal, error) {
	return c.getDecimal(ctx, "/portfolio/balance", token)
}

func (c *Client) AssetsValue(ctx context.Context, token string) (decimal.Decimal, error) {
	return c.getDecimal(ctx, "/portfolio/assets_value", token)
}

func (c *Client) Holdings(ctx context.Context, token string) ([]models.Holding, error) {
	status, raw, err := c.send(ctx, http.MethodGet, "/portfolio/stocks", token, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := classify(status, raw); err != nil {
		return nil, err
	}

	var holdings []models.Holding
	if err := json.Unmarshal(raw, &holdings); err != nil {
		return nil, fmt.Errorf("decoding holdings: %w", err)
	}
	return holdings, nil
}

// Leaderboard fetches the players ranked by net worth. The backend answers
// 404 when nobody has played yet; that is an empty board.
func (c *Client) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	if err := c.getJSON(ctx, "/leaderboard", "", &entries); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []models.LeaderboardEntry{}, nil
		}
		return nil, err
	}
	return entries, nil
}

// Titles lists the titles for sale. An empty shop answers 404.
func (c *Client) Titles(ctx context.Context) ([]models.Title, error) {
	var titles []models.Title
	if err := c.getJSON(ctx, "/shop/titles", "", &titles); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []models.Title{}, nil
		}
		return nil, err
	}
	return titles, nil
}

// CurrentTitle reads the title held by the token's user.
func (c *Client) CurrentTitle(ctx context.Context, token string) (models.TitleInfo, error) {
	var info models.TitleInfo
	if err := c.getJSON(ctx, "/portfolio/title", token, &info); err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.TitleInfo{Level: -1, Name: "none"}, nil
		}
		return models.TitleInfo{}, err
	}
	return info, nil
}

// News lists published articles, newest first.
func (c *Client) News(ctx context.Context) ([]models.NewsArticle, error) {
	var articles []models.NewsArticle
	if err := c.getJSON(ctx, "/news/", "", &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// Forward relays an operator command to the backend and hands back the raw
// answer. Only transport failures are returned as errors.
func (c *Client) Forward(ctx context.Context, token, path string, body json.RawMessage) (int, json.RawMessage, error) {
	var payload any
	if len(body) > 0 {
		payload = body
	}
	return c.send(ctx, http.MethodPost, path, token, nil, payload)
}

func (c *Client) getDecimal(ctx context.Context, path, token string) (decimal.Decimal, error) {
	status, raw, err := c.send(ctx, http.MethodGet, path, token, nil, nil)
	if err != nil {
		return decimal.Zero, err
	}
	if err := classify(status, raw); err != nil {
		return decimal.Zero, err
	}

	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return decimal.Zero, fmt.Errorf("decoding %s: %w", path, err)
	}
	return d, nil
}

func (c *Client) getJSON(ctx context.Context, path, token string, out any) error {
	status, raw, err := c.send(ctx, http.MethodGet, path, token, nil, nil)
	if err != nil {
		return err
	}
	if err := classify(status, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path, token string, header http.Header, body any) (int, []byte, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding %s body: %w", path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return 0, nil, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Backend request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return 0, nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: reading %s: %w", ErrUnavailable, path, err)
	}

	c.logger.Debug("Backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)
	return resp.StatusCode, raw, nil
}

// classify maps a non-2xx answer onto the error taxonomy, keeping the
// backend's own message.
func classify(status int, raw []byte) error {
	if status >= 200 && status <= 299 {
		return nil
	}

	msg := extractMessage(raw)
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case status >= 500:
		return fmt.Errorf("%w: %d %s", ErrUnavailable, status, msg)
	default:
		return &RejectedError{Status: status, Message: msg}
	}
}

func extractMessage(raw []byte) string {
	var resp messageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ""
	}
	if resp.Error != "" {
		return resp.Error
	}
	return resp.Message
}
