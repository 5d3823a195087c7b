// Package watch serves a read-only websocket feed of the running game,
// so a browser can follow along while the referee drives the children.
package watch

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Update is one applied ply as shown to observers.
type Update struct {
	Ply    int    `json:"ply"`
	Side   string `json:"side"`
	Move   string `json:"move"`
	Board  string `json:"board"`
	Status string `json:"status"`
}

type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// Run serves the feed on addr until the context is canceled.
func (h *Hub) Run(ctx context.Context, addr string) error {
	var mux = http.NewServeMux()
	mux.Handle("/watch", h)
	var srv = &http.Server{Addr: addr, Handler: mux}

	var done = make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		var sctx, cancel = context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	h.log.Info().Str("addr", addr).Msg("observer feed listening")
	var err = srv.ListenAndServe()
	<-done
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var conn, err = h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	var c = &client{conn: conn, send: make(chan []byte, 16)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	var last = h.last
	h.mu.Unlock()
	if last != nil {
		c.send <- last
	}

	go c.writePump()
	go c.readPump(h)
}

// Broadcast fans an update out to every observer; slow clients are
// dropped rather than allowed to stall the game.
func (h *Hub) Broadcast(u Update) {
	var payload, err = json.Marshal(u)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = payload
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (c *client) writePump() {
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			break
		}
	}
	c.conn.Close()
}

func (c *client) readPump(h *Hub) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	if _, tracked := h.clients[c]; tracked {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}
