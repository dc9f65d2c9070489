package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowpulse/flowpulse/internal/api"
	"github.com/flowpulse/flowpulse/internal/metrics"
	"github.com/flowpulse/flowpulse/internal/store"
)

// eventSnapshot is the only event type the hub emits today.
const eventSnapshot = "snapshot"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; CORS policy belongs to the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope every subscriber receives.
type Message struct {
	Event string               `json:"event"`
	Data  api.SnapshotResponse `json:"data"`
}

// Hub pushes a fleet snapshot to every connected WebSocket subscriber on a
// fixed interval. Subscribers also get one snapshot immediately on connect,
// so a dashboard renders without waiting out the first tick.
type Hub struct {
	store    *store.Store
	reg      *metrics.Registry
	interval time.Duration

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// New creates a Hub reading from st, broadcasting every interval.
func New(st *store.Store, reg *metrics.Registry, interval time.Duration) *Hub {
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Hub{
		store:    st,
		reg:      reg,
		interval: interval,
		subs:     make(map[*subscriber]struct{}),
	}
}

// Run drives the broadcast ticker until ctx is cancelled, then closes every
// open connection.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.broadcast()
		}
	}
}

// ServeHTTP upgrades the request and serves the subscriber until its
// connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already wrote the error response.
		return
	}

	sub := newSubscriber(conn)
	h.attach(sub)
	defer h.detach(sub)

	if msg, err := h.snapshotMessage(); err == nil {
		sub.enqueue(msg)
	}

	go sub.writeLoop()
	sub.readLoop() // returns when the connection dies
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) attach(sub *subscriber) {
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	h.reg.Set(metrics.StreamClientsConnected, int64(n))
	slog.Debug("ws: subscriber connected", "clients", n)
}

func (h *Hub) detach(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		sub.shutdown()
	}
	n := len(h.subs)
	h.mu.Unlock()

	h.reg.Set(metrics.StreamClientsConnected, int64(n))
	slog.Debug("ws: subscriber disconnected", "clients", n)
}

// broadcast fans the current snapshot out to every subscriber. A subscriber
// whose buffer is full is not keeping up and gets dropped, so one stuck
// reader cannot stall the tick.
func (h *Hub) broadcast() {
	msg, err := h.snapshotMessage()
	if err != nil {
		slog.Error("ws: building snapshot failed", "err", err)
		return
	}

	h.mu.Lock()
	dropped := 0
	for sub := range h.subs {
		if !sub.enqueue(msg) {
			delete(h.subs, sub)
			sub.shutdown()
			dropped++
		}
	}
	n := len(h.subs)
	h.mu.Unlock()

	h.reg.Inc(metrics.StreamBroadcastsTotal)
	h.reg.Set(metrics.StreamClientsConnected, int64(n))
	if dropped > 0 {
		slog.Warn("ws: dropped slow subscribers", "count", dropped)
	}
}

func (h *Hub) snapshotMessage() ([]byte, error) {
	return json.Marshal(Message{
		Event: eventSnapshot,
		Data:  api.BuildSnapshot(h.store, time.Now()),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for sub := range h.subs {
		sub.shutdown()
		delete(h.subs, sub)
	}
	h.mu.Unlock()

	h.reg.Set(metrics.StreamClientsConnected, 0)
}
