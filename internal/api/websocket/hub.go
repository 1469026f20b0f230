package websocket

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/voicegate/backend/internal/domain/auth"
)

const clientBufferSize = 16

// EventHub fans the engine's notification stream out to connected
// WebSocket clients. A slow client has its buffer dropped on, never the
// other clients or the engine.
type EventHub struct {
	logger *zap.Logger
	source <-chan auth.Event

	mu      sync.RWMutex
	clients map[*client]struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

type client struct {
	send chan auth.Event
}

// NewEventHub creates a hub consuming the given event stream.
func NewEventHub(source <-chan auth.Event, logger *zap.Logger) *EventHub {
	return &EventHub{
		logger:  logger,
		source:  source,
		clients: make(map[*client]struct{}),
		stop:    make(chan struct{}),
	}
}

// Run pumps events from the source to all subscribed clients until the
// context is cancelled or Stop is called.
func (h *EventHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stop:
			return
		case ev, ok := <-h.source:
			if !ok {
				return
			}
			h.broadcast(ev)
		}
	}
}

// Stop terminates the hub pump.
func (h *EventHub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *EventHub) broadcast(ev auth.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.logger.Warn("websocket client lagging, event dropped",
				zap.String("type", string(ev.Type)))
		}
	}
}

func (h *EventHub) subscribe() *client {
	c := &client{send: make(chan auth.Event, clientBufferSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *EventHub) unsubscribe(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ClientCount returns the number of subscribed clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
