// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/shiftsphere/internal/platform/ctxutil"
	"github.com/taibuivan/shiftsphere/internal/platform/metrics"
)

// Hub tracks the sockets connected to this instance.
//
// Registration changes go through channels consumed by [Hub.Run]; delivery
// takes a read lock and never blocks on a slow client. A client whose buffer
// is full is dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}

	register   chan *client
	unregister chan *client
	done       chan struct{}

	metrics *metrics.Metrics
	now     func() time.Time
}

// NewHub creates an idle hub. Call Run to start it.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients:    make(map[string]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		metrics:    m,
		now:        time.Now,
	}
}

// Run processes registrations until ctx is cancelled, then closes every socket.
func (hub *Hub) Run(ctx context.Context) {
	defer close(hub.done)

	for {
		select {
		case c := <-hub.register:
			hub.mu.Lock()
			set, ok := hub.clients[c.accountID]
			if !ok {
				set = make(map[*client]struct{})
				hub.clients[c.accountID] = set
			}
			set[c] = struct{}{}
			hub.mu.Unlock()
			hub.metrics.ClientConnected(1)

		case c := <-hub.unregister:
			hub.remove(c)

		case <-ctx.Done():
			hub.mu.Lock()
			for accountID, set := range hub.clients {
				for c := range set {
					close(c.send)
					hub.metrics.ClientConnected(-1)
				}
				delete(hub.clients, accountID)
			}
			hub.mu.Unlock()
			return
		}
	}
}

func (hub *Hub) remove(c *client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	set, ok := hub.clients[c.accountID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}

	delete(set, c)
	if len(set) == 0 {
		delete(hub.clients, c.accountID)
	}
	close(c.send)
	hub.metrics.ClientConnected(-1)
}

// attach hands a client to Run. It reports false once the hub has stopped.
func (hub *Hub) attach(c *client) bool {
	select {
	case hub.register <- c:
		return true
	case <-hub.done:
		return false
	}
}

// detach asks Run to drop a client. It is a no-op once the hub has stopped.
func (hub *Hub) detach(c *client) {
	select {
	case hub.unregister <- c:
	case <-hub.done:
	}
}

// Notify delivers the event to local sockets only.
func (hub *Hub) Notify(ctx context.Context, accountID, event string, payload any) {
	raw, err := encodePayload(payload)
	if err != nil {
		ctxutil.GetLogger(ctx).Error().Err(err).Str("event", event).Msg("realtime_payload_encode_failed")
		return
	}
	hub.deliver(ctx, accountID, event, raw)
}

func (hub *Hub) deliver(ctx context.Context, accountID, event string, payload []byte) {
	frame, err := encodeFrame(event, payload, hub.now())
	if err != nil {
		ctxutil.GetLogger(ctx).Error().Err(err).Str("event", event).Msg("realtime_frame_encode_failed")
		return
	}

	var slow []*client

	hub.mu.RLock()
	for c := range hub.clients[accountID] {
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	hub.mu.RUnlock()

	for _, c := range slow {
		ctxutil.GetLogger(ctx).Warn().Str("account_id", accountID).Msg("realtime_client_dropped_slow")
		go hub.detach(c)
	}
}

// ClientCount returns how many sockets an account has open on this instance.
func (hub *Hub) ClientCount(accountID string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients[accountID])
}
