package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"stock-game-frontend/backend"
	"stock-game-frontend/models"
	"stock-game-frontend/session"
)

var (
	ErrInvalidCredentials = backend.ErrInvalidCredentials
	ErrUsernameTaken      = backend.ErrUsernameTaken
	ErrUnauthenticated    = errors.New("not signed in")
	ErrForbidden          = errors.New("access denied, admins only")
	ErrInvalidSignup      = errors.New("username or password cannot be empty or contain spaces")
	ErrInvalidPasscode    = errors.New("incorrect passcode")
)

// Verifier is the credential side of the backend.
type Verifier interface {
	VerifyCredentials(ctx context.Context, username, password string) (*backend.Credentials, error)
	Register(ctx context.Context, username, password string) (*backend.Credentials, error)
}

// AuthenticatedContext is the identity a privileged request runs as. It is
// built from the server-held session only.
type AuthenticatedContext struct {
	SessionID string
	Username  string
	IsAdmin   bool
	Token     string
	ExpiresAt time.Time
}

type Options struct {
	Secret     []byte
	SessionTTL time.Duration

	// RequirePasscode gates signup behind a bcrypt-hashed passcode.
	RequirePasscode bool
	PasscodeHash    string
}

type Guard struct {
	verifier Verifier
	store    session.Store
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

func NewGuard(verifier Verifier, store session.Store, opts Options, logger *zap.Logger) *Guard {
	return &Guard{
		verifier: verifier,
		store:    store,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// VerifyCredentials signs a user in and returns the new session.
func (g *Guard) VerifyCredentials(ctx context.Context, username, password string) (*models.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	creds, err := g.verifier.VerifyCredentials(ctx, username, password)
	if err != nil {
		if !errors.Is(err, backend.ErrInvalidCredentials) {
			g.logger.Warn("Credential verification failed", zap.String("username", username), zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}
	return g.issue(ctx, username, creds)
}

// Register creates a backend account and signs it in.
func (g *Guard) Register(ctx context.Context, username, password, passcode string) (*models.Session, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" || strings.Contains(username, " ") || strings.Contains(password, " ") {
		return nil, ErrInvalidSignup
	}
	if g.opts.RequirePasscode {
		if err := bcrypt.CompareHashAndPassword([]byte(g.opts.PasscodeHash), []byte(passcode)); err != nil {
			return nil, ErrInvalidPasscode
		}
	}

	creds, err := g.verifier.Register(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if creds.Token == "" {
		return g.VerifyCredentials(ctx, username, password)
	}
	return g.issue(ctx, username, creds)
}

func (g *Guard) issue(ctx context.Context, username string, creds *backend.Credentials) (*models.Session, error) {
	claims, err := g.DecodeClaims(creds.Token, username, creds.IsAdmin)
	if err != nil {
		g.logger.Warn("Rejected backend token", zap.String("username", username), zap.Error(err))
		return nil, ErrInvalidCredentials
	}

	// A token without exp leaves TokenExpiresAt zero and the session rolls freely.
	now := g.now()
	tokenExp := claims.ExpiresAt
	expiresAt := now.Add(g.opts.SessionTTL)
	if !tokenExp.IsZero() {
		expiresAt = earliest(expiresAt, tokenExp)
	}
	s := &models.Session{
		ID:             uuid.NewString(),
		Username:       claims.Subject,
		IsAdmin:        claims.IsAdmin,
		Token:          creds.Token,
		CreatedAt:      now,
		ExpiresAt:      expiresAt,
		TokenExpiresAt: tokenExp,
	}
	if err := g.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	g.logger.Info("Session created", zap.String("username", s.Username), zap.Bool("admin", s.IsAdmin))
	return s, nil
}

type tokenClaims struct {
	IsAdmin *bool `json:"isAdmin,omitempty"`
	jwt.RegisteredClaims
}

// DecodeClaims verifies the token signature against the shared secret and
// returns its claims. The fallbacks fill subject and admin flag when the
// token does not carry them.
func (g *Guard) DecodeClaims(token, fallbackSubject string, fallbackAdmin bool) (models.Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(token, &tc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.opts.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return models.Claims{}, err
	}

	claims := models.Claims{
		Subject: tc.Subject,
		IsAdmin: fallbackAdmin,
	}
	if claims.Subject == "" {
		claims.Subject = fallbackSubject
	}
	if tc.IsAdmin != nil {
		claims.IsAdmin = *tc.IsAdmin
	}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		claims.ExpiresAt = tc.ExpiresAt.Time
	}
	return claims, nil
}

// Attach resolves the session behind a request. The token was verified when
// the session was issued and is not re-verified here.
func (g *Guard) Attach(ctx context.Context, sessionID string) (*AuthenticatedContext, error) {
	s, err := g.store.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}

	now := g.now()
	if !s.Authenticated(now) {
		if err := g.store.Delete(ctx, s.ID); err != nil {
			g.logger.Warn("Failed to drop expired session", zap.String("username", s.Username), zap.Error(err))
		}
		return nil, ErrUnauthenticated
	}

	// Rolling lifetime, never past the token's own expiry.
	if err := g.store.Touch(ctx, s, g.opts.SessionTTL); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		g.logger.Warn("Failed to extend session", zap.String("username", s.Username), zap.Error(err))
	}

	return &AuthenticatedContext{
		SessionID: s.ID,
		Username:  s.Username,
		IsAdmin:   s.IsAdmin,
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	}, nil
}

// RequireAdmin fails with ErrForbidden unless the server-held context is an admin.
func (g *Guard) RequireAdmin(actx *AuthenticatedContext) error {
	if actx == nil {
		return ErrUnauthenticated
	}
	if !actx.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// Logout drops the session. Calling it for a missing session is fine.
func (g *Guard) Logout(ctx context.Context, sessionID string) error {
	return g.store.Delete(ctx, sessionID)
}

func earliest(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}
