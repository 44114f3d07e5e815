package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock-game-frontend/trade"
)

const maxAdminBody = 64 << 10

// UpdateVolatility forwards a volatility change for one stock.
func (h *Handler) UpdateVolatility(c *gin.Context) {
	symbol := trade.NormalizeSymbol(c.Param("symbol"))
	h.forward(c, "/admin/stocks/"+url.PathEscape(symbol)+"/update_volatility")
}

// PublishNews forwards a news article.
func (h *Handler) PublishNews(c *gin.Context) {
	h.forward(c, "/news/")
}

// forward relays the body verbatim with the operator's token and hands the
// backend's answer back unchanged.
func (h *Handler) forward(c *gin.Context, path string) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAdminBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be JSON"})
		return
	}

	actx := h.identity(c)
	status, raw, err := h.forwarder.Forward(c.Request.Context(), actx.Token, path, body)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("Admin command forwarded",
		zap.String("user", actx.Username),
		zap.String("path", path),
		zap.Int("status", status),
	)
	if len(raw) == 0 {
		c.Status(status)
		return
	}
	c.Data(status, "application/json; charset=utf-8", raw)
}
