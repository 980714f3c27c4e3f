package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"aituki/internal/auth/models"
	dErrors "aituki/pkg/domain-errors"
	"aituki/pkg/platform/sentinel"
	"aituki/pkg/requestcontext"
)

// Handler receives every auth event with the new session (nil on sign-out).
type Handler func(models.AuthEvent)

type subscriber struct {
	id int
	fn Handler
}

// Manager holds the current session and notifies subscribers on every change.
//
// Invariants:
//   - at most one session is active process-wide
//   - the session is replaced wholesale, never mutated in place
//   - all writes funnel through Establish/Refreshed/Clear; no other component
//     assigns the session
//   - subscribers are notified synchronously in registration order, exactly
//     once per event; a handler that unsubscribed before the event is never
//     called
type Manager struct {
	mu      sync.Mutex
	current *models.Session
	subs    []subscriber
	nextSub int

	store Store
	log   *slog.Logger
}

// NewManager wires the manager to its persistence store.
func NewManager(store Store, log *slog.Logger) *Manager {
	return &Manager{store: store, log: log}
}

// Load restores the persisted session at startup and emits the initial-load
// event. An empty store is not an error; it simply yields a nil session.
func (m *Manager) Load(ctx context.Context) (*models.Session, error) {
	sess, err := m.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load persisted session")
		}
		sess = nil
	}
	m.apply(ctx, models.AuthEventInitialSession, sess, false)
	return sess, nil
}

// Current returns the active session, or nil when signed out. Callers must
// treat the returned session as immutable.
func (m *Manager) Current() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Authenticated reports whether a session is currently established.
func (m *Manager) Authenticated() bool {
	return m.Current() != nil
}

// Subscribe registers a handler invoked on every auth event. The returned
// function unsubscribes it; callers must invoke it on teardown to avoid
// leaking handlers.
func (m *Manager) Subscribe(fn Handler) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs = append(m.subs, subscriber{id: id, fn: fn})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, sub := range m.subs {
			if sub.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// Establish replaces the session after a successful credential or code
// exchange and emits a signed-in event.
func (m *Manager) Establish(ctx context.Context, sess *models.Session) {
	m.apply(ctx, models.AuthEventSignedIn, sess, true)
}

// Refreshed replaces the session with a freshly minted token pair.
func (m *Manager) Refreshed(ctx context.Context, sess *models.Session) {
	m.apply(ctx, models.AuthEventTokenRefreshed, sess, true)
}

// Clear drops the session and emits a signed-out event.
func (m *Manager) Clear(ctx context.Context) {
	m.apply(ctx, models.AuthEventSignedOut, nil, true)
}

// apply is the single reconciliation point: it swaps the session, persists
// the new state, and notifies the subscribers registered at event time.
// Persistence failures are logged, not propagated; session presence must
// stay consistent for every observer even when the store is down.
func (m *Manager) apply(ctx context.Context, typ models.AuthEventType, sess *models.Session, persist bool) {
	m.mu.Lock()
	m.current = sess
	snapshot := make([]subscriber, len(m.subs))
	copy(snapshot, m.subs)
	m.mu.Unlock()

	if persist {
		var err error
		if sess == nil {
			err = m.store.Clear(ctx)
		} else {
			err = m.store.Save(ctx, sess)
		}
		if err != nil {
			m.log.Warn("session persistence failed", "event", string(typ), "error", err)
		}
	}

	event := models.AuthEvent{Type: typ, Session: sess, At: requestcontext.Now(ctx)}
	for _, sub := range snapshot {
		sub.fn(event)
	}
}
