// Package monitoring pushes change events to connected clients and reports
// host resource usage.
package monitoring

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	clientBuffer   = 16
	broadcastQueue = 64
)

// Event tells a client that something it displays changed and should be re-fetched.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

type message struct {
	userID string
	event  Event
}

type client struct {
	conn   *websocket.Conn
	userID string
	send   chan Event
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// tokens travel in the query string, origin is not a credential here
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans events out to the websocket clients of each user.
type Hub struct {
	clients    map[string]map[*client]bool
	clientsMux sync.Mutex
	broadcast  chan message
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:   make(map[string]map[*client]bool),
		broadcast: make(chan message, broadcastQueue),
		logger:    logger.Named("hub"),
	}
}

// Run dispatches events until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.clientsMux.Lock()
			for _, set := range h.clients {
				for c := range set {
					c.conn.Close()
				}
			}
			h.clientsMux.Unlock()
			return
		case m := <-h.broadcast:
			h.clientsMux.Lock()
			for c := range h.clients[m.userID] {
				select {
				case c.send <- m.event:
				default:
					// slow client, it will re-fetch on the next event
				}
			}
			h.clientsMux.Unlock()
		}
	}
}

// Notify queues an event for userID without blocking the caller.
func (h *Hub) Notify(userID, eventType string) {
	select {
	case h.broadcast <- message{userID: userID, event: Event{Type: eventType, At: time.Now().UTC()}}:
	default:
		h.logger.Warn("event queue full, dropping", zap.String("user_id", userID), zap.String("type", eventType))
	}
}

// Clients returns how many connections userID has open.
func (h *Hub) Clients(userID string) int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients[userID])
}

func (h *Hub) register(c *client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]bool)
	}
	h.clients[c.userID][c] = true
	metrics.WebsocketClients.Inc()
}

func (h *Hub) unregister(c *client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	set := h.clients[c.userID]
	if !set[c] {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	metrics.WebsocketClients.Dec()
}

// ServeWS upgrades the request and streams userID's events until the client
// disconnects. Incoming messages are read and discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, userID: userID, send: make(chan Event, clientBuffer)}
	h.register(c)
	go h.writePump(c)

	defer func() {
		h.unregister(c)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	for ev := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			c.conn.Close()
			// drain until unregister closes send
			for range c.send {
			}
			return
		}
	}
}
