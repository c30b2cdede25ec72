package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"car-service/pkg/events"
)

const wsWriteTimeout = 5 * time.Second

// WSHub streams bus events to browser views so they know when to re-fetch.
// Customers only receive events about their own records; staff get everything.
type WSHub struct {
	upgrader websocket.Upgrader
	bus      *events.Bus
	authz    Authorizer
	mu       sync.RWMutex
	subs     map[*websocket.Conn]struct{}
}

func NewWSHub(bus *events.Bus, authz Authorizer) *WSHub {
	return &WSHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		bus:   bus,
		authz: authz,
		subs:  map[*websocket.Conn]struct{}{},
	}
}

// RegisterRoutes exposes the event stream at /api/v1/ws/events.
func (h *WSHub) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/ws/events", h.authz.Middleware(h.HandleEvents, false))
}

// HandleEvents upgrades the request and forwards matching events until the client goes away.
func (h *WSHub) HandleEvents(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed user=%s err=%v", id.Name, err)
		return
	}
	ch, cancel := h.bus.Subscribe(32)
	h.mu.Lock()
	h.subs[c] = struct{}{}
	h.mu.Unlock()
	log.Printf("ui event subscriber connected user=%s", id.Name)

	done := make(chan struct{})
	go h.readLoop(c, done)
	go func() {
		defer h.closeSub(c, cancel)
		for {
			select {
			case <-done:
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if !id.Admin && ev.CustomerID != id.CustomerID {
					continue
				}
				_ = c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := c.WriteJSON(ev); err != nil {
					return
				}
			}
		}
	}()
}

// readLoop drains client frames so close and ping frames are processed.
func (h *WSHub) readLoop(c *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := c.NextReader(); err != nil {
			return
		}
	}
}

func (h *WSHub) closeSub(c *websocket.Conn, cancel func()) {
	cancel()
	_ = c.Close()
	h.mu.Lock()
	delete(h.subs, c)
	h.mu.Unlock()
	log.Printf("ui event subscriber disconnected")
}

// Close sends a going-away frame to every connected view and drops it.
// http.Server.Shutdown does not track hijacked connections.
func (h *WSHub) Close() {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subs))
	for c := range h.subs {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, c := range conns {
		_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = c.Close()
	}
	log.Printf("closed %d ui event subscribers", len(conns))
}
