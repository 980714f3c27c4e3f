package audit

import (
	"context"

	id "aituki/pkg/domain"
	"aituki/pkg/requestcontext"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily. A nil
// *Publisher is a valid no-op receiver.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if p == nil {
		return nil
	}
	if event.ID == (id.EventID{}) {
		event.ID = id.NewEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, userID string) ([]Event, error) {
	if p == nil {
		return nil, nil
	}
	return p.store.ListByUser(ctx, userID)
}
