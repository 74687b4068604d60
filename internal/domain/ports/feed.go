package ports

import (
	"context"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

// ChangeFeed delivers content mutations made by any session.
type ChangeFeed interface {
	// Subscribe streams events until ctx is done or the feed fails.
	// The returned channel is closed when the subscription ends.
	Subscribe(ctx context.Context) (<-chan entities.ChangeEvent, error)
}

// ChangePublisher fans a mutation out to feed subscribers.
type ChangePublisher interface {
	Publish(event entities.ChangeEvent)
}
