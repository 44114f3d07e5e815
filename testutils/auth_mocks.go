package testutils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stock-game-frontend/backend"
)

// SignToken issues an HS256 token the way the backend does.
func SignToken(t testing.TB, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(24 * time.Hour).Unix()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// MockVerifier simulates the backend's credential endpoints.
type MockVerifier struct {
	Token   string
	IsAdmin bool
	Err     error

	RegisterToken string
	RegisterErr   error

	Calls         int
	RegisterCalls int
	Mu            sync.Mutex
}

func (m *MockVerifier) VerifyCredentials(ctx context.Context, username, password string) (*backend.Credentials, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return &backend.Credentials{Token: m.Token, IsAdmin: m.IsAdmin}, nil
}

func (m *MockVerifier) Register(ctx context.Context, username, password string) (*backend.Credentials, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RegisterCalls++
	if m.RegisterErr != nil {
		return nil, m.RegisterErr
	}
	return &backend.Credentials{Token: m.RegisterToken, IsAdmin: m.IsAdmin}, nil
}
