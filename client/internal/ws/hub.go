package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mallfront/storefront/client/internal/api"
	"github.com/mallfront/storefront/client/internal/store"
)

// EventSnapshot is the event name of every broadcast.
const EventSnapshot = "snapshot"

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string               `json:"event"`
	Data  api.SnapshotResponse `json:"data"`
}

// Hub fans the status board snapshot out to every connected subscriber.
type Hub struct {
	store    *store.Store
	interval time.Duration
	kick     chan struct{}
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	closed bool
}

// New creates a Hub that reads from st and broadcasts every interval.
// interval <= 0 disables the ticker; broadcasts then only follow Notify.
func New(st *store.Store, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		interval: interval,
		kick:     make(chan struct{}, 1),
		// The stream is read-only status data, so any origin may subscribe.
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		subs:     make(map[*subscriber]struct{}),
	}
}

// Notify asks the hub to broadcast as soon as possible. It never blocks;
// notifications arriving while one is pending are coalesced.
func (h *Hub) Notify() {
	select {
	case h.kick <- struct{}{}:
	default:
	}
}

// Run broadcasts on every tick and every Notify until ctx is cancelled, then
// disconnects all subscribers.
func (h *Hub) Run(ctx context.Context) {
	var tick <-chan time.Time
	if h.interval > 0 {
		t := time.NewTicker(h.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case <-tick:
		case <-h.kick:
		}
		h.broadcast()
	}
}

// ServeHTTP upgrades the request, queues the current snapshot and then
// streams updates until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("ws: upgrade rejected", "remote", r.RemoteAddr, "err", err)
		return
	}

	s := newSubscriber(conn)
	if !h.join(s) {
		conn.Close()
		return
	}
	defer h.leave(s)

	if frame, err := h.encode(); err == nil {
		s.offer(frame)
	}
	go s.pump()
	s.drain()
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) join(s *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.subs[s] = struct{}{}
	return true
}

// leave removes s and closes its outbox, which ends its pump. Safe to call
// more than once.
func (h *Hub) leave(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.outbox)
	}
}

// broadcast offers the snapshot to every subscriber under the read lock, so
// no outbox is closed mid-send. Subscribers that could not keep up are
// removed once the lock is released.
func (h *Hub) broadcast() {
	frame, err := h.encode()
	if err != nil {
		slog.Warn("ws: encode snapshot", "err", err)
		return
	}

	var lagging []*subscriber
	h.mu.RLock()
	for s := range h.subs {
		if !s.offer(frame) {
			lagging = append(lagging, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range lagging {
		slog.Debug("ws: dropping slow subscriber", "remote", s.remote())
		h.leave(s)
	}
}

func (h *Hub) encode() ([]byte, error) {
	return json.Marshal(Message{
		Event: EventSnapshot,
		Data:  api.BuildSnapshot(h.store),
	})
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.outbox)
	}
}
