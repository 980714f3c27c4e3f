package audit

import "context"

// Queue decouples emitters from persistence: Append enqueues the event and a
// Worker drains the inbox into the backing store. Reads go straight to the
// backing store, so recently enqueued events may not be visible yet.
type Queue struct {
	backing Store
	inbox   chan Event
}

func NewQueue(backing Store, size int) *Queue {
	return &Queue{backing: backing, inbox: make(chan Event, size)}
}

func (q *Queue) Append(ctx context.Context, event Event) error {
	select {
	case q.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) ListByUser(ctx context.Context, userID string) ([]Event, error) {
	return q.backing.ListByUser(ctx, userID)
}

// Worker builds the consumer that drains this queue.
func (q *Queue) Worker() *Worker {
	return NewWorker(q.backing, q.inbox)
}
