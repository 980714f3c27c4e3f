package callback

import (
	"context"
	"log/slog"
	"net/url"

	"aituki/internal/auth/metrics"
	"aituki/internal/auth/models"
)

// Route is the destination a dispatched callback resolves to.
type Route string

const (
	// RouteResetPassword sends the user to the password-reset view with the
	// recovery tokens attached. No session exists yet.
	RouteResetPassword Route = "reset_password"
	// RouteAuthenticated sends the user into the signed-in surface.
	RouteAuthenticated Route = "authenticated"
	// RouteUnauthenticated sends the user back to the sign-in surface.
	RouteUnauthenticated Route = "unauthenticated"
)

// ResetParams are the recovery credentials forwarded to the reset view:
// the token pair plus the link type the redirect carried.
type ResetParams struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	LinkType     string `json:"type"`
}

// Outcome is the terminal result of dispatching one callback. Err is set when
// a session was attempted but could not be established; the route still
// resolves (to RouteUnauthenticated) so the caller always has somewhere to
// send the user.
type Outcome struct {
	Route   Route
	Reset   *ResetParams
	Session *models.Session
	Err     error
}

// SessionEstablisher is the slice of the credential exchanger the router
// needs to turn callback credentials into sessions.
type SessionEstablisher interface {
	ExchangeCode(ctx context.Context, code string) (*models.Session, error)
	EstablishSession(ctx context.Context, accessToken, refreshToken string) (*models.Session, error)
}

// Router turns inbound deep-link callbacks into routing outcomes. It fails
// closed: anything it cannot positively resolve to a session or a reset flow
// lands on the unauthenticated route.
type Router struct {
	exchanger SessionEstablisher
	metrics   *metrics.Metrics
	log       *slog.Logger
}

func NewRouter(exchanger SessionEstablisher, m *metrics.Metrics, log *slog.Logger) *Router {
	return &Router{exchanger: exchanger, metrics: m, log: log}
}

// Handle classifies the redirect parameters and dispatches the result.
func (r *Router) Handle(ctx context.Context, params url.Values) Outcome {
	return r.Dispatch(ctx, Classify(params))
}

// Dispatch resolves one classified intent to a route.
func (r *Router) Dispatch(ctx context.Context, intent Intent) Outcome {
	outcome := r.dispatch(ctx, intent)
	r.metrics.RecordCallbackDispatch(intent.kind(), string(outcome.Route))
	return outcome
}

func (r *Router) dispatch(ctx context.Context, intent Intent) Outcome {
	switch in := intent.(type) {
	case RecoveryIntent:
		// Recovery tokens are handed to the reset view untouched; a session
		// is only established after the user sets a new password there.
		return Outcome{
			Route: RouteResetPassword,
			Reset: &ResetParams{
				AccessToken:  in.AccessToken,
				RefreshToken: in.RefreshToken,
				LinkType:     in.LinkType,
			},
		}

	case ConfirmationIntent:
		sess, err := r.exchanger.EstablishSession(ctx, in.AccessToken, in.RefreshToken)
		if err != nil {
			r.log.Warn("confirmation callback could not establish a session", "error", err)
			return Outcome{Route: RouteUnauthenticated, Err: err}
		}
		return Outcome{Route: RouteAuthenticated, Session: sess}

	case CodeIntent:
		sess, err := r.exchanger.ExchangeCode(ctx, in.Code)
		if err != nil {
			r.log.Warn("callback code exchange failed", "error", err)
			return Outcome{Route: RouteUnauthenticated, Err: err}
		}
		return Outcome{Route: RouteAuthenticated, Session: sess}

	default:
		r.log.Info("callback carried no recognized parameters")
		return Outcome{Route: RouteUnauthenticated}
	}
}
