package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stock-game-frontend/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// TablePayload is what a browser receives: the table sorted its own way.
type TablePayload struct {
	Sort   Sort           `json:"sort"`
	Quotes []models.Quote `json:"quotes"`
}

type sortRequest struct {
	Action    string `json:"action"`
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

// Hub fans table changes out to connected browsers. Only the Run goroutine
// touches the client set.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	refresh    chan *Client
	broadcast  chan []models.Quote
	done       chan struct{}

	view     func() []models.Quote
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHub(view func() []models.Quote, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		refresh:    make(chan *Client),
		broadcast:  make(chan []models.Quote, 16),
		done:       make(chan struct{}),
		view:       view,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger,
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug("Browser connected", zap.Int("clients", len(h.clients)))
		case c := <-h.unregister:
			h.drop(c)
		case c := <-h.refresh:
			if h.clients[c] {
				select {
				case c.send <- h.view():
				default:
				}
			}
		case quotes := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- quotes:
				default:
					h.logger.Warn("Dropping slow browser")
					h.drop(c)
				}
			}
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

// Broadcast queues a table for every browser without blocking the caller.
// A dropped table is superseded by the next change or poll.
func (h *Hub) Broadcast(quotes []models.Quote) {
	select {
	case h.broadcast <- quotes:
	default:
		h.logger.Debug("Broadcast queue full, skipping table")
	}
}

// Serve upgrades a browser connection and starts its pumps.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Upgrade error", zap.Error(err))
		return
	}

	c := &Client{hub: h, conn: conn, send: make(chan []models.Quote, 16), sort: DefaultSort}
	c.send <- h.view()

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []models.Quote

	mu   sync.Mutex
	sort Sort
}

func (c *Client) currentSort() Sort {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sort
}

func (c *Client) setSort(s Sort) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sort = s
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("Browser read error", zap.Error(err))
			}
			return
		}

		var req sortRequest
		if err := json.Unmarshal(payload, &req); err != nil || req.Action != "sort" {
			continue
		}
		s, err := ParseSort(req.Column, req.Direction)
		if err != nil {
			continue
		}
		c.setSort(s)

		select {
		case c.hub.refresh <- c:
		case <-c.hub.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case quotes, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			s := c.currentSort()
			msg := WSMessage{Event: EventStockTable, Data: TablePayload{Sort: s, Quotes: SortQuotes(quotes, s)}}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
