// Package ws relays cycle summaries from the signal bus to WebSocket
// clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origins are enforced by the CORS and auth middleware in front of /ws.
	CheckOrigin: func(*http.Request) bool { return true },
}

// envelope is the frame every client receives.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans bus messages out to every connected client. Each bus channel is
// mapped to the envelope type clients see.
type Hub struct {
	bus      domain.SignalBus
	channels map[string]string // bus channel -> envelope type
	status   func() domain.BotStatus

	mu      sync.Mutex
	clients map[*client]struct{}

	logger *slog.Logger
}

// NewHub creates a Hub relaying channels (bus channel to envelope type).
// status, when non-nil, is sent to each client on connect.
func NewHub(bus domain.SignalBus, channels map[string]string, status func() domain.BotStatus, logger *slog.Logger) *Hub {
	return &Hub{
		bus:      bus,
		channels: channels,
		status:   status,
		clients:  make(map[*client]struct{}),
		logger:   logger.With(slog.String("component", "ws_hub")),
	}
}

// Run subscribes to the bus and relays until ctx is cancelled, then closes
// every client.
func (h *Hub) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for channel, kind := range h.channels {
		msgs, err := h.bus.Subscribe(ctx, channel)
		if err != nil {
			return err
		}
		h.logger.Info("ws: relaying channel", slog.String("channel", channel))
		wg.Add(1)
		go func(kind string) {
			defer wg.Done()
			for payload := range msgs {
				h.Broadcast(kind, payload)
			}
		}(kind)
	}

	<-ctx.Done()
	wg.Wait()

	h.mu.Lock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	return ctx.Err()
}

// Broadcast wraps payload in an envelope of type kind and queues it for
// every client. Slow clients drop the frame.
func (h *Hub) Broadcast(kind string, payload []byte) {
	if !json.Valid(payload) {
		h.logger.Warn("ws: dropping non-JSON payload", slog.String("type", kind))
		return
	}
	frame, err := json.Marshal(envelope{Type: kind, Payload: payload})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			h.logger.Warn("ws: dropping frame for slow client")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleWS upgrades the request and registers the client.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}

	if h.status != nil {
		if payload, err := json.Marshal(statusPayload(h.status())); err == nil {
			if frame, err := json.Marshal(envelope{Type: "bot_status", Payload: payload}); err == nil {
				c.send <- frame
			}
		}
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws: client connected", slog.Int("clients", n))

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws: client disconnected", slog.Int("clients", n))
}

// readPump discards client frames and keeps the read deadline fresh.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("ws: unexpected close", slog.String("error", err.Error()))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func statusPayload(s domain.BotStatus) map[string]any {
	out := map[string]any{
		"mode":           s.Mode,
		"address":        s.Address,
		"token":          s.Token,
		"uptime_seconds": s.UptimeSeconds,
	}
	if !s.LastCycleAt.IsZero() {
		out["last_cycle_at"] = s.LastCycleAt.UTC().Format(time.RFC3339)
	}
	return out
}
