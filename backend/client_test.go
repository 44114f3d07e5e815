package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stock-game-frontend/backend"
	"stock-game-frontend/models"
)

func newClient(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return backend.NewClient(server.URL, time.Second, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestVerifyCredentials(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		switch body["password"] {
		case "right":
			writeJSON(w, http.StatusOK, map[string]any{"message": "Credentials verified", "token": "tok", "isAdmin": true})
		case "odd":
			writeJSON(w, http.StatusOK, map[string]any{"message": "something else", "token": "tok"})
		default:
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
		}
	})
	ctx := context.Background()

	creds, err := client.VerifyCredentials(ctx, "alice", "right")
	if err != nil {
		t.Fatalf("VerifyCredentials: %v", err)
	}
	if creds.Token != "tok" || !creds.IsAdmin {
		t.Errorf("Unexpected credentials %+v", creds)
	}

	for _, pw := range []string{"wrong", "odd"} {
		if _, err := client.VerifyCredentials(ctx, "alice", pw); !errors.Is(err, backend.ErrInvalidCredentials) {
			t.Errorf("password %q: expected ErrInvalidCredentials, got %v", pw, err)
		}
	}
}

func TestVerifyCredentials_Unreachable(t *testing.T) {
	client := backend.NewClient("http://127.0.0.1:1", 200*time.Millisecond, zap.NewNop())
	if _, err := client.VerifyCredentials(context.Background(), "alice", "pw"); !errors.Is(err, backend.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["username"] == "taken" {
			writeJSON(w, http.StatusConflict, map[string]any{"error": "Username already exists"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"message": "User registered successfully"})
	})
	ctx := context.Background()

	creds, err := client.Register(ctx, "bob", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if creds.Token != "" {
		t.Errorf("Expected no token, got %q", creds.Token)
	}
	if _, err := client.Register(ctx, "taken", "pw"); !errors.Is(err, backend.ErrUsernameTaken) {
		t.Errorf("Expected ErrUsernameTaken, got %v", err)
	}
}

func TestTransact(t *testing.T) {
	var gotKey, gotAuth, gotPath string
	var gotBody map[string]any
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		if gotBody["stock_symbol"] == "BROKE" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Insufficient funds"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Stock purchased successfully"})
	})
	ctx := context.Background()

	msg, err := client.Transact(ctx, "tok", models.SideBuy, "AAPL", 3, "key-1")
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if msg != "Stock purchased successfully" {
		t.Errorf("Unexpected message %q", msg)
	}
	if gotPath != "/transactions/buy" || gotKey != "key-1" || gotAuth != "Bearer tok" {
		t.Errorf("Unexpected request: path=%s key=%s auth=%s", gotPath, gotKey, gotAuth)
	}
	if gotBody["quantity"] != float64(3) {
		t.Errorf("Expected quantity 3, got %v", gotBody["quantity"])
	}
	if _, ok := gotBody["price"]; ok {
		t.Error("The advisory price must not be sent")
	}

	_, err = client.Transact(ctx, "tok", models.SideBuy, "BROKE", 1, "key-2")
	var rejected *backend.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("Expected RejectedError, got %v", err)
	}
	if rejected.Message != "Insufficient funds" || rejected.Status != http.StatusBadRequest {
		t.Errorf("Unexpected rejection %+v", rejected)
	}
}

func TestTransact_ConfirmedWithoutJSONBody(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/transactions/sell" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK, bought"))
	})
	ctx := context.Background()

	msg, err := client.Transact(ctx, "tok", models.SideBuy, "AAPL", 1, "key-1")
	if err != nil {
		t.Fatalf("A 2xx answer must count as executed, got %v", err)
	}
	if msg != backend.DefaultConfirmation {
		t.Errorf("Expected default confirmation, got %q", msg)
	}

	msg, err = client.Transact(ctx, "tok", models.SideSell, "AAPL", 1, "key-2")
	if err != nil || msg != backend.DefaultConfirmation {
		t.Errorf("Empty 2xx answer: got %q, %v", msg, err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, backend.ErrUnauthorized},
		{http.StatusForbidden, backend.ErrUnauthorized},
		{http.StatusNotFound, backend.ErrNotFound},
		{http.StatusBadGateway, backend.ErrUnavailable},
	}
	for _, tc := range cases {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, tc.status, map[string]any{"error": "nope"})
		})
		if _, err := client.StockPrice(context.Background(), "AAPL"); !errors.Is(err, tc.want) {
			t.Errorf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestPortfolioReads(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/portfolio/balance":
			w.Write([]byte(`10000.50`))
		case "/portfolio/assets_value":
			w.Write([]byte(`"1500"`))
		case "/portfolio/stocks":
			w.Write([]byte(`[{"stock_symbol":"AAPL","quantity":10,"price":150},{"stock_symbol":"GONE","quantity":1,"price":null}]`))
		case "/stocks/AAPL":
			w.Write([]byte(`{"symbol":"AAPL","price":"150.00"}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	balance, err := client.Balance(ctx, "tok")
	if err != nil || !balance.Equal(decimal.RequireFromString("10000.50")) {
		t.Errorf("Balance: %s, %v", balance, err)
	}
	assets, err := client.AssetsValue(ctx, "tok")
	if err != nil || !assets.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("AssetsValue: %s, %v", assets, err)
	}
	holdings, err := client.Holdings(ctx, "tok")
	if err != nil || len(holdings) != 2 {
		t.Fatalf("Holdings: %v, %v", holdings, err)
	}
	if holdings[1].Price.Valid {
		t.Error("Null price should decode as invalid")
	}
	price, err := client.StockPrice(ctx, "AAPL")
	if err != nil || !price.Equal(decimal.NewFromInt(150)) {
		t.Errorf("StockPrice: %s, %v", price, err)
	}
	if _, err := client.StockPrice(ctx, "NOPE"); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCommunityReads(t *testing.T) {
	var empty atomic.Bool
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/leaderboard":
			if empty.Load() {
				writeJSON(w, http.StatusNotFound, map[string]any{"message": "No data available"})
				return
			}
			writeJSON(w, http.StatusOK, []map[string]any{
				{"username": "alice", "title": "Gourd Lord", "liquidAssets": 100.5, "investedAssets": 50, "netWorth": 150.5},
			})
		case "/shop/titles":
			writeJSON(w, http.StatusOK, []map[string]any{{"title": "Gourd Lord", "level": 1, "price": 5000}})
		case "/portfolio/title":
			if r.Header.Get("Authorization") != "Bearer tok" {
				writeJSON(w, http.StatusForbidden, map[string]any{"message": "Token is missing!"})
				return
			}
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "Title not found"})
		case "/news/":
			writeJSON(w, http.StatusOK, []map[string]any{
				{"_id": "n1", "title": "Chips up", "author": "desk", "timestamp": "Tue, 15 Oct 2024 12:00:00 GMT"},
			})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	board, err := client.Leaderboard(ctx)
	if err != nil || len(board) != 1 || !board[0].NetWorth.Equal(decimal.RequireFromString("150.5")) {
		t.Errorf("Unexpected leaderboard %+v, %v", board, err)
	}
	empty.Store(true)
	if board, err := client.Leaderboard(ctx); err != nil || board == nil || len(board) != 0 {
		t.Errorf("An empty board is not an error, got %+v, %v", board, err)
	}

	titles, err := client.Titles(ctx)
	if err != nil || len(titles) != 1 || titles[0].Level != 1 {
		t.Errorf("Unexpected titles %+v, %v", titles, err)
	}

	info, err := client.CurrentTitle(ctx, "tok")
	if err != nil || info.Level != -1 || info.Name != "none" {
		t.Errorf("Expected no title, got %+v, %v", info, err)
	}
	if _, err := client.CurrentTitle(ctx, ""); !errors.Is(err, backend.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized without a token, got %v", err)
	}

	news, err := client.News(ctx)
	if err != nil || len(news) != 1 || news[0].ID != "n1" || news[0].Timestamp.Year() != 2024 {
		t.Errorf("Unexpected news %+v, %v", news, err)
	}
}
