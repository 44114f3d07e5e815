package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// GetPortfolio reloads the session's snapshot from the backend. ?cached=true
// serves the snapshot already loaded for the current page instead.
func (h *Handler) GetPortfolio(c *gin.Context) {
	actx := h.identity(c)
	load := h.executor.Portfolio
	if cached, _ := strconv.ParseBool(c.Query("cached")); cached {
		load = h.executor.CachedPortfolio
	}

	snap, err := load(c.Request.Context(), actx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// TradeHistory lists the user's journaled submissions, newest first.
func (h *Handler) TradeHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive number"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	trades, err := h.journal.TradesFor(c.Request.Context(), h.identity(c).Username, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if trades == nil {
		c.JSON(http.StatusOK, []struct{}{})
		return
	}
	c.JSON(http.StatusOK, trades)
}
