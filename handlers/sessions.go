package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock-game-frontend/auth"
	"stock-game-frontend/middleware"
)

// forgetSession drops the state kept for a session outside the session store.
func (h *Handler) forgetSession(id string) {
	h.executor.Forget(id)
	h.tickets.Drop(id)
}

// endRefusedSession signs the browser out when the backend no longer accepts
// the session's token, so the next request starts from the sign-in page.
func (h *Handler) endRefusedSession(c *gin.Context, err error) {
	if !errors.Is(err, auth.ErrUnauthenticated) {
		return
	}
	actx := h.identity(c)
	if actx == nil {
		return
	}
	if err := h.guard.Logout(c.Request.Context(), actx.SessionID); err != nil {
		h.logger.Warn("Failed to drop refused session", zap.String("username", actx.Username), zap.Error(err))
	}
	h.forgetSession(actx.SessionID)
	middleware.ClearSessionCookie(c, h.cookies)
	h.logger.Info("Session ended after the backend refused its token", zap.String("username", actx.Username))
}

// SweepSessions periodically drops tickets and portfolio snapshots idle for
// longer than idle. Sessions that expire in the store without the browser
// coming back are only cleaned up here.
func (h *Handler) SweepSessions(ctx context.Context, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.sweep(time.Now().Add(-idle))
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) sweep(cutoff time.Time) {
	tickets := h.tickets.Sweep(cutoff)
	portfolios := h.executor.Sweep(cutoff)
	if tickets+portfolios > 0 {
		h.logger.Debug("Swept idle session state", zap.Int("tickets", tickets), zap.Int("portfolios", portfolios))
	}
}
