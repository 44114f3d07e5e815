package feed

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stock-game-frontend/models"
)

const (
	EventStockUpdate = "stock_update"
	EventStockTable  = "stock_table"
)

// WSMessage is the envelope used on both the backend push channel and the
// browser socket.
type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type pushMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

var _ PushSource = (*WSPushSource)(nil)

// WSPushSource subscribes to the backend's websocket push channel.
type WSPushSource struct {
	url    string
	dialer *websocket.Dialer
	logger *zap.Logger

	idleTimeout time.Duration
	minBackoff  time.Duration
	maxBackoff  time.Duration
}

func NewWSPushSource(url string, logger *zap.Logger) *WSPushSource {
	return &WSPushSource{
		url:         url,
		dialer:      &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:      logger,
		idleTimeout: 90 * time.Second,
		minBackoff:  time.Second,
		maxBackoff:  30 * time.Second,
	}
}

// Stream reads stock_update events into out, reconnecting with exponential
// backoff, until ctx is done.
func (w *WSPushSource) Stream(ctx context.Context, out chan<- models.QuotePatch) error {
	backoff := w.minBackoff
	for {
		connected, err := w.streamOnce(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = w.minBackoff
		}
		w.logger.Warn("Push channel disconnected", zap.String("url", w.url), zap.Error(err), zap.Duration("retry_in", backoff))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil
		}
		backoff *= 2
		if backoff > w.maxBackoff {
			backoff = w.maxBackoff
		}
	}
}

func (w *WSPushSource) streamOnce(ctx context.Context, out chan<- models.QuotePatch) (bool, error) {
	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	// Closing the connection is the only way to unblock ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	w.logger.Info("Connected to push channel", zap.String("url", w.url))
	conn.SetReadDeadline(time.Now().Add(w.idleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(w.idleTimeout))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		conn.SetReadDeadline(time.Now().Add(w.idleTimeout))

		var msg pushMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			w.logger.Debug("Dropping undecodable push frame", zap.ByteString("frame", raw), zap.Error(err))
			continue
		}
		if msg.Event != EventStockUpdate {
			continue
		}
		var p models.QuotePatch
		if err := json.Unmarshal(msg.Data, &p); err != nil || strings.TrimSpace(p.Symbol) == "" {
			w.logger.Debug("Dropping malformed stock update", zap.ByteString("data", msg.Data), zap.Error(err))
			continue
		}

		select {
		case out <- p:
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
}
