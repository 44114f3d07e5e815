package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stock-game-frontend/feed"
	"stock-game-frontend/trade"
)

// ListStocks returns the synchronized table in the requested order. The
// order only applies to this response.
func (h *Handler) ListStocks(c *gin.Context) {
	sort, err := feed.ParseSort(c.Query("sort"), c.Query("dir"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed.TablePayload{
		Sort:   sort,
		Quotes: feed.SortQuotes(h.feed.View(), sort),
	})
}

// GetStock answers from the synchronized table and falls back to a direct
// price lookup for symbols the table has not seen yet.
func (h *Handler) GetStock(c *gin.Context) {
	symbol := c.Param("symbol")

	q, err := h.executor.Quote(symbol)
	if err == nil {
		c.JSON(http.StatusOK, q)
		return
	}
	if !errors.Is(err, trade.ErrNotFound) {
		h.respondError(c, err)
		return
	}

	price, err := h.executor.LookupPrice(c.Request.Context(), symbol)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": trade.NormalizeSymbol(symbol), "price": price})
}

func (h *Handler) StocksSocket(c *gin.Context) {
	h.hub.Serve(c.Writer, c.Request)
}
