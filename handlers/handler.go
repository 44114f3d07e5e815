package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock-game-frontend/auth"
	"stock-game-frontend/backend"
	"stock-game-frontend/database"
	"stock-game-frontend/feed"
	"stock-game-frontend/middleware"
	"stock-game-frontend/models"
	"stock-game-frontend/trade"
)

// Forwarder relays a user's command to the backend and returns its answer.
type Forwarder interface {
	Forward(ctx context.Context, token, path string, body json.RawMessage) (int, json.RawMessage, error)
}

// Community serves the backend's shared game pages.
type Community interface {
	Titles(ctx context.Context) ([]models.Title, error)
	CurrentTitle(ctx context.Context, token string) (models.TitleInfo, error)
	News(ctx context.Context) ([]models.NewsArticle, error)
}

type Handler struct {
	guard       *auth.Guard
	feed        *feed.Synchronizer
	hub         *feed.Hub
	executor    *trade.Executor
	tickets     *trade.TicketBook
	journal     database.Store
	forwarder   Forwarder
	community   Community
	leaderboard *feed.Leaderboard
	cookies     middleware.CookieConfig
	logger      *zap.Logger
}

type Deps struct {
	Guard       *auth.Guard
	Feed        *feed.Synchronizer
	Hub         *feed.Hub
	Executor    *trade.Executor
	Tickets     *trade.TicketBook
	Journal     database.Store
	Forwarder   Forwarder
	Community   Community
	Leaderboard *feed.Leaderboard
	Cookies     middleware.CookieConfig
	Logger      *zap.Logger
}

func New(d Deps) *Handler {
	if d.Tickets == nil {
		d.Tickets = trade.NewTicketBook()
	}
	if d.Journal == nil {
		d.Journal = database.NopStore{}
	}
	return &Handler{
		guard:       d.Guard,
		feed:        d.Feed,
		hub:         d.Hub,
		executor:    d.Executor,
		tickets:     d.Tickets,
		journal:     d.Journal,
		forwarder:   d.Forwarder,
		community:   d.Community,
		leaderboard: d.Leaderboard,
		cookies:     d.Cookies,
		logger:      d.Logger,
	}
}

// statusFor maps an error onto the HTTP status shown to the browser.
func statusFor(err error) int {
	var rejected *backend.RejectedError
	switch {
	case errors.As(err, &rejected):
		if rejected.Status >= 400 && rejected.Status < 500 {
			return rejected.Status
		}
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden), errors.Is(err, auth.ErrInvalidPasscode):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrUsernameTaken), errors.Is(err, trade.ErrSubmitInFlight):
		return http.StatusConflict
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, trade.ErrInvalidOrder), errors.Is(err, auth.ErrInvalidSignup), errors.Is(err, feed.ErrInvalidSort):
		return http.StatusBadRequest
	case errors.Is(err, backend.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// messageFor is the text shown for err. Backend wording passes through.
func messageFor(err error) string {
	var rejected *backend.RejectedError
	switch {
	case errors.As(err, &rejected):
		return rejected.Message
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials"
	case statusFor(err) == http.StatusInternalServerError:
		return "Internal Server Error"
	case errors.Is(err, trade.ErrInvalidOrder), errors.Is(err, trade.ErrSubmitInFlight),
		errors.Is(err, backend.ErrNotFound), errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, backend.ErrUnavailable):
		return trade.ErrorMessage(err)
	}
	return err.Error()
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= 500 {
		h.logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.Error(err)
	h.endRefusedSession(c, err)
	c.JSON(status, gin.H{"error": messageFor(err)})
}

func (h *Handler) identity(c *gin.Context) *auth.AuthenticatedContext {
	actx, _ := middleware.Identity(c)
	return actx
}
