// Package callback classifies inbound deep-link parameters and dispatches
// them to the right follow-up action.
package callback

import "net/url"

// Intent is the classified meaning of one inbound redirect. Exactly one
// variant matches per redirect; see Classify for the priority order.
type Intent interface {
	kind() string
}

// RecoveryIntent is a password-reset link: the tokens are forwarded to the
// reset view, and no session is established until the user completes the
// explicit reset step.
type RecoveryIntent struct {
	AccessToken  string
	RefreshToken string
	LinkType     string
}

// ConfirmationIntent is an email-confirmation link carrying a token pair
// that directly establishes a session.
type ConfirmationIntent struct {
	AccessToken  string
	RefreshToken string
}

// CodeIntent is an OAuth or email-link authorization code awaiting exchange.
type CodeIntent struct {
	Code string
}

// UnknownIntent is a redirect carrying none of the recognized parameters.
type UnknownIntent struct{}

func (RecoveryIntent) kind() string     { return "recovery" }
func (ConfirmationIntent) kind() string { return "confirmation" }
func (CodeIntent) kind() string         { return "code" }
func (UnknownIntent) kind() string      { return "unknown" }

// Classify maps redirect query parameters onto an intent. The order is a
// strict priority, not a convenience: a parameter set matching an earlier
// rule resolves there even when later rules would also match.
//
//  1. access_token with type=recovery  -> password-reset link
//  2. access_token with type=signup or no type -> email-confirmation link
//  3. code -> authorization code
//  4. anything else -> unknown
func Classify(params url.Values) Intent {
	accessToken := params.Get("access_token")
	linkType := params.Get("type")

	if accessToken != "" && linkType == "recovery" {
		return RecoveryIntent{
			AccessToken:  accessToken,
			RefreshToken: params.Get("refresh_token"),
			LinkType:     linkType,
		}
	}

	if accessToken != "" && (linkType == "signup" || linkType == "") {
		return ConfirmationIntent{
			AccessToken:  accessToken,
			RefreshToken: params.Get("refresh_token"),
		}
	}

	if code := params.Get("code"); code != "" {
		return CodeIntent{Code: code}
	}

	return UnknownIntent{}
}
