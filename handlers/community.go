package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stock-game-frontend/auth"
	"stock-game-frontend/backend"
	"stock-game-frontend/models"
)

// GetLeaderboard serves the ranking last polled from the backend.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	entries, loadedAt := h.leaderboard.Entries()
	c.JSON(http.StatusOK, gin.H{
		"entries":    entries,
		"updated_at": loadedAt,
	})
}

// GetNews lists the backend's articles for the landing page. The page still
// renders without news, so a failure yields an empty list.
func (h *Handler) GetNews(c *gin.Context) {
	articles, err := h.community.News(c.Request.Context())
	if err != nil {
		h.logger.Warn("Error fetching news", zap.Error(err))
		articles = nil
	}
	if articles == nil {
		articles = []models.NewsArticle{}
	}
	c.JSON(http.StatusOK, articles)
}

// ShopPage shows the titles for sale next to the user's balance and title.
func (h *Handler) ShopPage(c *gin.Context) {
	actx := h.identity(c)
	var (
		titles  []models.Title
		current models.TitleInfo
		snap    *models.PortfolioSnapshot
	)

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		titles, err = h.community.Titles(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		current, err = h.community.CurrentTitle(ctx, actx.Token)
		return err
	})
	g.Go(func() error {
		var err error
		snap, err = h.executor.Portfolio(ctx, actx)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			err = fmt.Errorf("%w: %w", auth.ErrUnauthenticated, err)
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"titles":  titles,
		"title":   current,
		"balance": snap.Balance,
	})
}

type purchaseInput struct {
	Level *int `json:"level"`
}

// PurchaseTitle forwards a title purchase and relays the backend's answer.
func (h *Handler) PurchaseTitle(c *gin.Context) {
	var input purchaseInput
	if err := c.ShouldBindJSON(&input); err != nil || input.Level == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Level is required!"})
		return
	}
	body, _ := json.Marshal(gin.H{"level": *input.Level})

	actx := h.identity(c)
	status, raw, err := h.forwarder.Forward(c.Request.Context(), actx.Token, "/shop/purchase", body)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if status >= 200 && status <= 299 {
		// The balance moved; the next cached read must reload.
		h.executor.Forget(actx.SessionID)
	}

	h.logger.Info("Title purchase forwarded",
		zap.String("user", actx.Username),
		zap.Int("level", *input.Level),
		zap.Int("status", status),
	)
	if len(raw) == 0 {
		c.Status(status)
		return
	}
	c.Data(status, "application/json; charset=utf-8", raw)
}
