// Package ws pushes live price and trade events to connected dashboard
// clients over WebSocket. Clients are read-mostly: incoming messages are
// discarded, the hub only broadcasts.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/halcyonlabs/swapdesk/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 64
)

// upgrader configures the WebSocket upgrade parameters. Origin checking is
// delegated to the CORS middleware in front of the hub.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client represents a single WebSocket connection.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub manages connected WebSocket clients and fans broadcast messages out to
// all of them. Slow clients are dropped rather than blocking the hub.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	logger     *slog.Logger

	mu      sync.RWMutex
	clients map[*client]bool
}

// NewHub creates an empty Hub. Run must be started before HandleWS accepts
// connections.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "ws_hub")),
		clients:    make(map[*client]bool),
	}
}

// Run processes register/unregister/broadcast events until ctx is cancelled,
// then closes all client connections.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// Unblock pending register/unregister sends before closing
			// the connections.
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return nil

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client connected", slog.Int("clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", slog.Int("clients", n))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Client's buffer is full; drop it on the next cycle.
					go func(c *client) {
						select {
						case h.unregister <- c:
						case <-h.done:
						}
					}(c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastQuote pushes a price event to all connected clients.
func (h *Hub) BroadcastQuote(q domain.PriceQuote) {
	h.publish(map[string]any{
		"event":     "price",
		"price":     q.MidPrice,
		"buyPrice":  q.BuyPrice,
		"sellPrice": q.SellPrice,
		"timestamp": q.ObservedAt.UnixMilli(),
	})
}

// BroadcastTrade pushes an executed-trade event to all connected clients.
func (h *Hub) BroadcastTrade(r domain.TradeReceipt) {
	h.publish(map[string]any{
		"event":       "trade",
		"action":      r.Action,
		"inAmount":    r.InAmount,
		"outAmount":   r.OutAmount,
		"price":       r.PriceUsed,
		"fee":         r.FeeAmount,
		"priceImpact": r.PriceImpact,
		"timestamp":   r.ExecutedAt.UnixMilli(),
	})
}

func (h *Hub) publish(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast buffer full, dropping event")
	}
}

// HandleWS upgrades the HTTP connection and registers the client.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

// writePump writes broadcast messages and periodic pings to the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// readPump discards incoming messages and detects client disconnects.
func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
