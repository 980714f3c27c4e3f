// Package guard decides where navigation belongs given the current session
// state. Evaluate is a pure function of its input so callers can re-run it on
// every state change without side effects.
package guard

import "strings"

// Section is the broad area of the app a screen belongs to.
type Section string

const (
	// SectionAuth covers sign-in, sign-up, and reset screens.
	SectionAuth Section = "auth"
	// SectionProtected covers everything requiring a signed-in user.
	SectionProtected Section = "protected"
	// SectionPublic covers screens reachable in any session state.
	SectionPublic Section = "public"
)

// Well-known redirect targets.
const (
	TargetHome   = "/"
	TargetSignIn = "/auth/sign-in"
)

// Action says what the caller should do with the current screen.
type Action string

const (
	// ActionNone means stay put.
	ActionNone Action = "none"
	// ActionRedirect means navigate to Decision.Target.
	ActionRedirect Action = "redirect"
)

// State is the input to one guard evaluation.
type State struct {
	// Loading is true until the initial session restore has resolved.
	Loading bool
	// Authenticated is true when a session is currently established.
	Authenticated bool
	// Section is where the user currently is.
	Section Section
}

// Decision is the guard's verdict for one state.
type Decision struct {
	Action Action
	Target string
}

// Evaluate maps a session state and location onto a navigation decision.
// While the session is still loading no verdict is possible, so the guard
// holds rather than flashing a redirect that the resolved state may reverse.
func Evaluate(state State) Decision {
	if state.Loading {
		return Decision{Action: ActionNone}
	}

	switch state.Section {
	case SectionAuth:
		if state.Authenticated {
			return Decision{Action: ActionRedirect, Target: TargetHome}
		}
	case SectionProtected:
		if !state.Authenticated {
			return Decision{Action: ActionRedirect, Target: TargetSignIn}
		}
	}

	return Decision{Action: ActionNone}
}

// SectionOf classifies a path into a section. Paths under /auth belong to the
// auth section except the callback endpoints, which must stay reachable in
// any state while they resolve.
func SectionOf(path string) Section {
	switch path {
	case "/auth/callback", "/auth/reset-password", "/healthz", "/metrics":
		return SectionPublic
	}
	if path == "/auth" || strings.HasPrefix(path, "/auth/") {
		return SectionAuth
	}
	return SectionProtected
}
