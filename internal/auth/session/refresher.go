package session

import (
	"context"
	"log/slog"
	"time"
)

// RefreshFunc performs one token refresh round trip. It is injected so the
// worker stays decoupled from the service layer.
type RefreshFunc func(ctx context.Context) error

// Refresher refreshes the session ahead of access token expiry so callers
// never hold a token that is about to lapse. It keeps background processing
// testable without wiring scheduler implementations.
type Refresher struct {
	manager  *Manager
	refresh  RefreshFunc
	interval time.Duration
	window   time.Duration
	log      *slog.Logger
}

// NewRefresher checks every interval whether the session expires within
// window and refreshes it when it does.
func NewRefresher(manager *Manager, refresh RefreshFunc, interval, window time.Duration, log *slog.Logger) *Refresher {
	return &Refresher{
		manager:  manager,
		refresh:  refresh,
		interval: interval,
		window:   window,
		log:      log,
	}
}

func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	current := r.manager.Current()
	if current == nil || !current.ExpiresWithin(r.window, time.Now()) {
		return
	}
	if err := r.refresh(ctx); err != nil {
		// The next tick retries; the provider decides when the refresh
		// token itself stops being exchangeable.
		r.log.Warn("background session refresh failed", "error", err)
	}
}
