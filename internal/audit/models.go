// Package audit records an append-only trail of auth actions for
// diagnostics. Deep-link flows surface failures only as redirects, so the
// trail is often the only place a swallowed exchange error is visible.
package audit

import (
	"time"

	id "aituki/pkg/domain"
)

// Action names the auth operation an event describes.
type Action string

const (
	ActionSignIn        Action = "sign_in"
	ActionSignUp        Action = "sign_up"
	ActionSignOut       Action = "sign_out"
	ActionPasswordReset Action = "password_reset"
	ActionCodeExchange  Action = "code_exchange"
	ActionSetSession    Action = "set_session"
	ActionOAuthFlow     Action = "oauth_flow"
	ActionTokenRefresh  Action = "token_refresh"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        id.EventID
	Timestamp time.Time
	RequestID string
	UserID    string
	Action    Action
	Method    string
	Outcome   string
	Reason    string
}
