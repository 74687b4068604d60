package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

// ChangeFeed is a mock implementation of ports.ChangeFeed and
// ports.ChangePublisher. Published events are delivered to every subscriber.
type ChangeFeed struct {
	mu   sync.Mutex
	subs []chan entities.ChangeEvent

	SubscribeErr error
	Published    []entities.ChangeEvent
}

// Subscribe returns a channel of events that is closed by Close.
func (m *ChangeFeed) Subscribe(_ context.Context) (<-chan entities.ChangeEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubscribeErr != nil {
		return nil, m.SubscribeErr
	}
	ch := make(chan entities.ChangeEvent, 16)
	m.subs = append(m.subs, ch)
	return ch, nil
}

// Publish records ev and sends it to all subscribers.
func (m *ChangeFeed) Publish(ev entities.ChangeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, ev)
	for _, ch := range m.subs {
		ch <- ev
	}
}

// Close closes every subscriber channel.
func (m *ChangeFeed) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		close(ch)
	}
	m.subs = nil
}

// Subscribers returns the number of open subscriptions.
func (m *ChangeFeed) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
