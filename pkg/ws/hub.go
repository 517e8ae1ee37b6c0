// Package ws streams controller state to WebSocket clients.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	EventLightState      = "light_state"
	EventConnectionState = "connection_state"
	EventScanStatus      = "scan_status"
	EventScanResults     = "scan_results"
)

var writeWait = 100 * time.Millisecond

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type ScanResults struct {
	Compatible   []models.Advertisement `json:"compatible"`
	Incompatible []models.Advertisement `json:"incompatible"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans events out to every connected client. New clients first get the
// latest event of each type.
type Hub struct {
	// sending serializes broadcasts; a websocket.Conn allows one writer at a time
	sending sync.Mutex
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	latest  map[string]Event
}

func NewHub() *Hub {
	return &Hub{clients: map[*websocket.Conn]bool{}, latest: map[string]Event{}}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to upgrade connection")
		return
	}
	h.mu.Lock()
	for _, event := range h.latest {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(event); err != nil {
			h.mu.Unlock()
			conn.Close()
			return
		}
	}
	h.clients[conn] = true
	h.mu.Unlock()
	log.Debug().Str("remote", r.RemoteAddr).Msg("WebSocket client connected")

	// clients never send anything; reading only notices the close
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends event to every client, dropping the ones that fail or are too slow
func (h *Hub) Broadcast(event Event) {
	h.sending.Lock()
	defer h.sending.Unlock()
	h.mu.Lock()
	h.latest[event.Type] = event
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
	}
	h.mu.Unlock()

	var (
		wg       sync.WaitGroup
		failedMu sync.Mutex
		failed   []*websocket.Conn
	)
	for _, conn := range clients {
		wg.Add(1)
		go func(c *websocket.Conn) {
			defer wg.Done()
			c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteJSON(event); err != nil {
				failedMu.Lock()
				failed = append(failed, c)
				failedMu.Unlock()
			}
		}(conn)
	}
	wg.Wait()
	for _, conn := range failed {
		log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Dropping WebSocket client")
		h.remove(conn)
	}
}

// Sources feed the hub. Nil fields are skipped.
type Sources struct {
	LightState      models.Watchable[models.LightState]
	ConnectionState models.Watchable[models.ConnectionState]
	ScanStatus      models.Watchable[models.ScanStatus]
	Compatible      models.Watchable[[]models.Advertisement]
	Incompatible    models.Watchable[[]models.Advertisement]
}

// Run broadcasts every change of the sources until ctx is done
func (h *Hub) Run(ctx context.Context, src Sources) {
	var wg sync.WaitGroup
	follow := func(events <-chan Event) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range events {
				h.Broadcast(e)
			}
		}()
	}
	if src.LightState != nil {
		follow(events(ctx, src.LightState, func(v models.LightState) Event {
			return Event{EventLightState, v}
		}))
	}
	if src.ConnectionState != nil {
		follow(events(ctx, src.ConnectionState, func(v models.ConnectionState) Event {
			return Event{EventConnectionState, v.String()}
		}))
	}
	if src.ScanStatus != nil {
		follow(events(ctx, src.ScanStatus, func(v models.ScanStatus) Event {
			return Event{EventScanStatus, v.String()}
		}))
	}
	if src.Compatible != nil && src.Incompatible != nil {
		results := func([]models.Advertisement) Event {
			return Event{EventScanResults, ScanResults{src.Compatible.Get(), src.Incompatible.Get()}}
		}
		follow(events(ctx, src.Compatible, results))
		follow(events(ctx, src.Incompatible, results))
	}
	wg.Wait()
}

func events[T any](ctx context.Context, w models.Watchable[T], toEvent func(T) Event) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for v := range w.Subscribe(ctx) {
			out <- toEvent(v)
		}
	}()
	return out
}
