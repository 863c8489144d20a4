// Package websocket streams result log changes to connected teacher views.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
)

const sendBuffer = 32

// Hub fans result events out to every connected viewer. With a redis client
// events travel through a pub/sub channel so that every server instance
// sharing the database sees them; without one they are delivered in process.
type Hub struct {
	rdb     *redis.Client
	channel string
	log     zerolog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(rdb *redis.Client, channel string, log zerolog.Logger) *Hub {
	return &Hub{
		rdb:     rdb,
		channel: channel,
		log:     log.With().Str("component", "results_feed").Logger(),
		clients: make(map[*client]struct{}),
	}
}

// ─── Result notifications ───────────────────────────────────────────

func (h *Hub) ResultAppended(r model.Result) {
	h.publish(FeedEvent{Event: EventResultAppended, Result: &r})
}

func (h *Hub) ResultDeleted(id int64) {
	h.publish(FeedEvent{Event: EventResultDeleted, ID: id})
}

func (h *Hub) ResultsCleared() {
	h.publish(FeedEvent{Event: EventResultsCleared})
}

func (h *Hub) publish(ev FeedEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Str("event", string(ev.Event)).Msg("Failed to encode feed event")
		return
	}

	if h.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := h.rdb.Publish(ctx, h.channel, payload).Err()
		if err == nil {
			return
		}
		h.log.Warn().Err(err).Msg("Redis publish failed, delivering locally")
	}
	h.broadcast(payload)
}

// Run relays pub/sub messages to local viewers until ctx is done. It is a
// no-op without redis.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		return
	}
	pubsub := h.rdb.Subscribe(ctx, h.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast([]byte(msg.Payload))
		}
	}
}

// broadcast queues payload for every viewer. Viewers whose buffer is full
// are disconnected rather than blocking the publisher.
func (h *Hub) broadcast(payload []byte) {
	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn().Msg("Dropping slow feed viewer")
		h.remove(c)
	}
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ─── Connections ────────────────────────────────────────────────────

// NewUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// Serve registers conn as a viewer and blocks until it disconnects.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(c)
	h.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("Viewer connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(c)
	}()

	h.readPump(c)
	h.remove(c)
	<-done
	_ = conn.Close()
	h.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("Viewer disconnected")
}

// readPump discards client messages and returns when the peer goes away.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}
