// Package session owns the process-wide authentication session. The Manager
// is the single source of truth for "is a user logged in, and as whom"; every
// mutation flows through it and fans out to subscribers synchronously.
package session

import (
	"context"

	"aituki/internal/auth/models"
)

// Store persists the current session across process restarts.
//
// Error Contract:
// - Load returns sentinel.ErrNotFound (optionally wrapped) when nothing is
//   persisted.
// - Save and Clear return nil on success and wrapped errors with context for
//   infrastructure failures.
type Store interface {
	Save(ctx context.Context, session *models.Session) error
	Load(ctx context.Context) (*models.Session, error)
	Clear(ctx context.Context) error
}
