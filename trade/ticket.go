package trade

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stock-game-frontend/auth"
	"stock-game-frontend/backend"
	"stock-game-frontend/models"
)

// Ticket is the order form a browser is filling in. The estimated total is
// for display and is never sent.
type Ticket struct {
	Symbol         string              `json:"symbol"`
	Side           models.Side         `json:"side"`
	QuantityText   string              `json:"quantity"`
	UnitPrice      decimal.NullDecimal `json:"unit_price"`
	EstimatedTotal decimal.NullDecimal `json:"estimated_total"`
	Submitting     bool                `json:"submitting"`
	Message        string              `json:"message,omitempty"`
	Error          string              `json:"error,omitempty"`
}

func NewTicket() Ticket {
	return Ticket{Side: models.SideBuy}
}

// SelectSymbol sets the symbol and fills the unit price from lookup. An
// unknown symbol clears the price and total.
func (t *Ticket) SelectSymbol(symbol string, lookup func(string) (models.Quote, error)) error {
	t.Symbol = NormalizeSymbol(symbol)
	q, err := lookup(t.Symbol)
	if err != nil {
		t.UnitPrice = decimal.NullDecimal{}
		t.EstimatedTotal = decimal.NullDecimal{}
		t.Error = ErrorMessage(err)
		return err
	}
	t.Error = ""
	t.UnitPrice = decimal.NewNullDecimal(q.Price)
	t.recompute()
	return nil
}

func (t *Ticket) SetSide(side models.Side) error {
	if !side.Valid() {
		return ErrInvalidOrder
	}
	t.Side = side
	return nil
}

func (t *Ticket) SetQuantity(text string) {
	t.QuantityText = text
	t.recompute()
}

func (t *Ticket) recompute() {
	qty, err := ParseQuantity(t.QuantityText)
	if err != nil || !t.UnitPrice.Valid {
		t.EstimatedTotal = decimal.NullDecimal{}
		return
	}
	t.EstimatedTotal = decimal.NewNullDecimal(t.UnitPrice.Decimal.Mul(decimal.NewFromInt(qty)))
}

// Order builds the order the ticket describes, validated locally.
func (t *Ticket) Order() (models.TradeOrder, error) {
	qty, err := ParseQuantity(t.QuantityText)
	if err != nil {
		return models.TradeOrder{}, err
	}
	return Validate(models.TradeOrder{
		Symbol:    t.Symbol,
		Side:      t.Side,
		Quantity:  qty,
		UnitPrice: t.UnitPrice.Decimal,
	})
}

// Begin disables the form for submission. Validation failures leave the form
// editable and make no network call.
func (t *Ticket) Begin() (models.TradeOrder, error) {
	if t.Submitting {
		return models.TradeOrder{}, ErrSubmitInFlight
	}
	order, err := t.Order()
	if err != nil {
		t.Error = ErrorMessage(err)
		t.Message = ""
		return models.TradeOrder{}, err
	}
	t.Submitting = true
	t.Message = ""
	t.Error = ""
	return order, nil
}

// Finish re-enables the form. Success clears it; failure keeps every field
// and shows the error.
func (t *Ticket) Finish(receipt *models.Receipt, err error) {
	t.Submitting = false
	if err != nil {
		t.Error = ErrorMessage(err)
		t.Message = ""
		return
	}
	side := t.Side
	*t = NewTicket()
	t.Side = side
	if receipt != nil {
		t.Message = receipt.Message
	}
}

// ErrorMessage is the text shown to the user for err. Backend rejections are
// shown verbatim.
func ErrorMessage(err error) string {
	var rejected *backend.RejectedError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rejected):
		return rejected.Message
	case errors.Is(err, ErrInvalidOrder), errors.Is(err, ErrSubmitInFlight):
		return err.Error()
	case errors.Is(err, ErrNotFound):
		return "Stock not found"
	case errors.Is(err, ErrUnauthenticated):
		return "Your session has expired, please sign in again"
	case errors.Is(err, ErrBackendUnavailable):
		return "The trading service is unavailable, please try again"
	}
	return "Transaction failed"
}

// TicketBook keeps one ticket per session.
type TicketBook struct {
	mu      sync.Mutex
	tickets map[string]*Ticket
	touched map[string]time.Time
	now     func() time.Time
}

func NewTicketBook() *TicketBook {
	return &TicketBook{
		tickets: make(map[string]*Ticket),
		touched: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (b *TicketBook) Get(sessionID string) Ticket {
	return b.Update(sessionID, func(*Ticket) {})
}

// Update applies fn to the session's ticket under the book's lock and returns
// the resulting state.
func (b *TicketBook) Update(sessionID string, fn func(*Ticket)) Ticket {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tickets[sessionID]
	if !ok {
		nt := NewTicket()
		t = &nt
		b.tickets[sessionID] = t
	}
	b.touched[sessionID] = b.now()
	fn(t)
	return *t
}

func (b *TicketBook) Drop(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tickets, sessionID)
	delete(b.touched, sessionID)
}

// Sweep drops tickets untouched since cutoff, except those mid-submit, and
// returns how many went.
func (b *TicketBook) Sweep(cutoff time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for id, at := range b.touched {
		if at.Before(cutoff) && !b.tickets[id].Submitting {
			delete(b.tickets, id)
			delete(b.touched, id)
			n++
		}
	}
	return n
}

func (b *TicketBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tickets)
}

// SubmitTicket submits the session's ticket and records the outcome on it.
func (e *Executor) SubmitTicket(ctx context.Context, actx *auth.AuthenticatedContext, book *TicketBook) (Ticket, *models.Receipt, error) {
	var (
		order models.TradeOrder
		err   error
	)
	state := book.Update(actx.SessionID, func(t *Ticket) { order, err = t.Begin() })
	if err != nil {
		return state, nil, err
	}

	receipt, err := e.Submit(ctx, actx, order)
	state = book.Update(actx.SessionID, func(t *Ticket) { t.Finish(receipt, err) })
	return state, receipt, err
}
