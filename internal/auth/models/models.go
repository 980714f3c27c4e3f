// Package models defines the auth domain types shared across internal
// packages.
package models

import (
	"time"

	id "aituki/pkg/domain"
)

// User is the identity record associated 1:1 with a Session. It is derived
// from the provider's token payload and never persisted on its own.
type User struct {
	ID       id.UserID         `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Session is the provider-issued authenticated state: a token pair plus the
// associated user. Sessions are replaced wholesale on every auth event,
// never mutated field by field.
type Session struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// ExpiresWithin reports whether the access token expires before now+window.
// Sessions without a recorded expiry never report as expiring.
func (s *Session) ExpiresWithin(window time.Duration, now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return s.ExpiresAt.Before(now.Add(window))
}

// AuthEventType tags a change notification from the session manager.
type AuthEventType string

const (
	// AuthEventInitialSession fires once when the persisted session (or its
	// absence) is loaded at startup.
	AuthEventInitialSession AuthEventType = "INITIAL_SESSION"
	AuthEventSignedIn       AuthEventType = "SIGNED_IN"
	AuthEventSignedOut      AuthEventType = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is delivered to session subscribers. Session is nil for
// signed-out events and for an initial load with no persisted session.
type AuthEvent struct {
	Type    AuthEventType
	Session *Session
	At      time.Time
}

// RedirectStatus tags the outcome of one interactive browser flow.
type RedirectStatus string

const (
	RedirectSuccess   RedirectStatus = "success"
	RedirectCancelled RedirectStatus = "cancelled"
	RedirectFailed    RedirectStatus = "failed"
)

// RedirectResult is the terminal outcome of an OAuth browser session. It is
// transient; it exists only for the duration of one sign-in attempt.
type RedirectResult struct {
	Status RedirectStatus
	// URL is the final redirect URL, set only on success.
	URL string
	// Reason describes the failure, set only on failed results.
	Reason string
}
