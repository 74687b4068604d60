package server

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

const subscriberBuffer = 100

type subscriber struct {
	worldID string
	ch      chan entities.ChangeEvent
}

// Hub fans change events out to feed subscribers. It implements
// ports.ChangePublisher. A subscriber that falls behind loses events
// rather than blocking the publisher.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	closed      bool
	logger      logrus.FieldLogger
}

// NewHub creates an empty hub.
func NewHub(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		subscribers: make(map[string]*subscriber),
		logger:      logger,
	}
}

// Register adds a subscriber. A non-empty worldID limits delivery to that
// world's events. The returned channel is closed by Unregister or Close.
func (h *Hub) Register(worldID string) (string, <-chan entities.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan entities.ChangeEvent, subscriberBuffer)
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subscribers[id] = &subscriber{worldID: worldID, ch: ch}
	return id, ch
}

// Unregister removes a subscriber and closes its channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subscribers[id]; ok {
		close(sub.ch)
		delete(h.subscribers, id)
	}
}

// Publish delivers ev to every matching subscriber without blocking.
func (h *Hub) Publish(ev entities.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.subscribers {
		if sub.worldID != "" && sub.worldID != ev.WorldID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.logger.WithField("subscriber", id).Warn("change feed subscriber is full, dropping event")
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close closes every subscriber channel. Later registrations get a closed
// channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subscribers {
		close(sub.ch)
		delete(h.subscribers, id)
	}
	h.closed = true
}
