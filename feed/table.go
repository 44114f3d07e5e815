package feed

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"stock-game-frontend/models"
)

type Column string

const (
	ColumnSymbol Column = "symbol"
	ColumnPrice  Column = "price"
	ColumnChange Column = "change"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

var ErrInvalidSort = errors.New("invalid sort")

type Sort struct {
	Column    Column    `json:"column"`
	Direction Direction `json:"direction"`
}

var DefaultSort = Sort{Column: ColumnSymbol, Direction: Asc}

// ParseSort validates a column/direction pair. Empty values fall back to the
// default sort.
func ParseSort(column, direction string) (Sort, error) {
	s := DefaultSort
	if column != "" {
		s.Column = Column(strings.ToLower(column))
	}
	if direction != "" {
		s.Direction = Direction(strings.ToLower(direction))
	}
	switch s.Column {
	case ColumnSymbol, ColumnPrice, ColumnChange:
	default:
		return DefaultSort, fmt.Errorf("%w: unknown column %q", ErrInvalidSort, column)
	}
	if s.Direction != Asc && s.Direction != Desc {
		return DefaultSort, fmt.Errorf("%w: unknown direction %q", ErrInvalidSort, direction)
	}
	return s, nil
}

// Toggle is a header click: select the column and flip the direction.
func (s Sort) Toggle(col Column) Sort {
	dir := Asc
	if s.Direction == Asc {
		dir = Desc
	}
	return Sort{Column: col, Direction: dir}
}

// SortQuotes returns a sorted copy. Ties on the selected column are broken by
// symbol so the result is a total order.
func SortQuotes(quotes []models.Quote, s Sort) []models.Quote {
	out := make([]models.Quote, len(quotes))
	copy(out, quotes)

	sort.Slice(out, func(i, j int) bool {
		var c int
		switch s.Column {
		case ColumnPrice:
			c = out[i].Price.Cmp(out[j].Price)
		case ColumnChange:
			c = out[i].Change.Cmp(out[j].Change)
		default:
			c = strings.Compare(out[i].Symbol, out[j].Symbol)
		}
		if s.Direction == Desc {
			c = -c
		}
		if c == 0 {
			return out[i].Symbol < out[j].Symbol
		}
		return c < 0
	})
	return out
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Table is the canonical set of quotes plus the sorted projection shown to
// the view. Rows are never removed.
type Table struct {
	mu     sync.RWMutex
	quotes map[string]models.Quote
	sort   Sort
	view   []models.Quote
}

func NewTable() *Table {
	return &Table{
		quotes: make(map[string]models.Quote),
		sort:   DefaultSort,
	}
}

// ApplySnapshot overwrites every quote in the snapshot. Symbols missing from
// it keep their last known values.
func (t *Table) ApplySnapshot(quotes []models.Quote) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, q := range quotes {
		q.Symbol = normalizeSymbol(q.Symbol)
		if q.Symbol == "" {
			continue
		}
		t.quotes[q.Symbol] = q
	}
	t.reproject()
}

// ApplyPatch upserts one symbol and returns the merged quote. A patch without
// a symbol is ignored.
func (t *Table) ApplyPatch(p models.QuotePatch) (models.Quote, bool) {
	symbol := normalizeSymbol(p.Symbol)
	if symbol == "" {
		return models.Quote{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.quotes[symbol]
	if !ok {
		q = models.Quote{Symbol: symbol}
	}
	q.Apply(p)
	t.quotes[symbol] = q
	t.reproject()
	return q, true
}

func (t *Table) SetSort(s Sort) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sort = s
	t.reproject()
}

func (t *Table) Sort() Sort {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sort
}

// View returns a copy of the sorted projection.
func (t *Table) View() []models.Quote {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.Quote, len(t.view))
	copy(out, t.view)
	return out
}

func (t *Table) Get(symbol string) (models.Quote, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	q, ok := t.quotes[normalizeSymbol(symbol)]
	return q, ok
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.quotes)
}

// reproject must be called with mu held.
func (t *Table) reproject() {
	all := make([]models.Quote, 0, len(t.quotes))
	for _, q := range t.quotes {
		all = append(all, q)
	}
	t.view = SortQuotes(all, t.sort)
}
