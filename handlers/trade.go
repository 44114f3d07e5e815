package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stock-game-frontend/models"
	"stock-game-frontend/trade"
)

// quantityText accepts a JSON number or string and keeps the raw text, so
// validation happens in one place.
type quantityText string

func (q *quantityText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*q = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*q = quantityText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	*q = quantityText(n.String())
	return nil
}

type TicketInput struct {
	Symbol   *string       `json:"symbol"`
	Side     *models.Side  `json:"side"`
	Quantity *quantityText `json:"quantity"`
}

// TradePage is the order form together with the user's portfolio.
func (h *Handler) TradePage(c *gin.Context) {
	actx := h.identity(c)
	snap, err := h.executor.Portfolio(c.Request.Context(), actx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	view := h.feed.View()
	symbols := make([]string, len(view))
	for i, q := range view {
		symbols[i] = q.Symbol
	}
	c.JSON(http.StatusOK, gin.H{
		"ticket":    h.tickets.Get(actx.SessionID),
		"portfolio": snap,
		"symbols":   symbols,
	})
}

// SelectSymbol fills the ticket's unit price from the synchronized table.
func (h *Handler) SelectSymbol(c *gin.Context) {
	var input TicketInput
	if err := c.ShouldBindJSON(&input); err != nil || input.Symbol == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	actx := h.identity(c)
	var lookupErr, sideErr error
	ticket := h.tickets.Update(actx.SessionID, func(t *trade.Ticket) {
		if input.Side != nil {
			sideErr = t.SetSide(*input.Side)
		}
		lookupErr = t.SelectSymbol(*input.Symbol, h.executor.Quote)
	})

	switch {
	case sideErr != nil:
		h.respondTicket(c, ticket, sideErr)
	case lookupErr != nil:
		h.respondTicket(c, ticket, lookupErr)
	default:
		c.JSON(http.StatusOK, gin.H{"ticket": ticket})
	}
}

// SetQuantity updates the ticket's quantity and estimated total.
func (h *Handler) SetQuantity(c *gin.Context) {
	var input TicketInput
	if err := c.ShouldBindJSON(&input); err != nil || input.Quantity == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity is required"})
		return
	}

	ticket := h.tickets.Update(h.identity(c).SessionID, func(t *trade.Ticket) {
		t.SetQuantity(string(*input.Quantity))
	})
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

// Submit places a buy or sell. Fields in the body are applied to the ticket
// first, so a single request can carry the whole order.
func (h *Handler) Submit(c *gin.Context) {
	side := models.Side(strings.ToLower(c.Param("side")))
	if !side.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown trade action"})
		return
	}

	var input TicketInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	actx := h.identity(c)
	h.tickets.Update(actx.SessionID, func(t *trade.Ticket) {
		if t.Submitting {
			return
		}
		t.SetSide(side)
		if input.Symbol != nil {
			// An unknown symbol is reported by the backend on submit.
			t.SelectSymbol(*input.Symbol, h.executor.Quote)
		}
		if input.Quantity != nil {
			t.SetQuantity(string(*input.Quantity))
		}
	})

	ticket, receipt, err := h.executor.SubmitTicket(c.Request.Context(), actx, h.tickets)
	if err != nil {
		h.respondTicket(c, ticket, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": receipt.Message,
		"receipt": receipt,
		"ticket":  ticket,
	})
}

func (h *Handler) respondTicket(c *gin.Context, ticket trade.Ticket, err error) {
	c.Error(err)
	h.endRefusedSession(c, err)
	c.JSON(statusFor(err), gin.H{
		"error":  messageFor(err),
		"ticket": ticket,
	})
}
