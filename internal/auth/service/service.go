// Package service is the credential exchanger: it turns sign-in, sign-up,
// reset, and token-exchange requests into provider calls and funnels every
// resulting session through the session manager. It never panics; every
// outcome is a value plus a coded domain error.
package service

import (
	"context"
	"log/slog"

	"github.com/asaskevich/govalidator"

	"aituki/internal/audit"
	"aituki/internal/auth/metrics"
	"aituki/internal/auth/models"
	"aituki/internal/auth/provider"
	"aituki/internal/auth/session"
	dErrors "aituki/pkg/domain-errors"
)

// DefaultScheme is the deep-link scheme used when no app scheme is
// configured. Redirect targets are never built from an empty scheme.
const DefaultScheme = "aitukinative"

const (
	methodPassword = "password"
	methodSignUp   = "signup"
	methodCode     = "code"
	methodTokens   = "tokens"
	methodRefresh  = "refresh"
	methodSignOut  = "signout"
)

// Service adapts auth flow interactions into a callable façade. It keeps
// transport concerns out of business logic.
type Service struct {
	provider provider.Provider
	sessions *session.Manager
	scheme   string
	metrics  *metrics.Metrics
	audit    *audit.Publisher
	log      *slog.Logger
}

func New(p provider.Provider, sessions *session.Manager, scheme string, m *metrics.Metrics, aud *audit.Publisher, log *slog.Logger) *Service {
	return &Service{
		provider: p,
		sessions: sessions,
		scheme:   scheme,
		metrics:  m,
		audit:    aud,
		log:      log,
	}
}

// CallbackRedirect is the deep-link target for OAuth and email-confirmation
// flows.
func (s *Service) CallbackRedirect() string {
	return s.redirectScheme() + "://auth/callback"
}

// ResetRedirect is the deep-link target embedded in password-reset emails.
func (s *Service) ResetRedirect() string {
	return s.redirectScheme() + "://auth/reset-password"
}

func (s *Service) redirectScheme() string {
	if s.scheme == "" {
		return DefaultScheme
	}
	return s.scheme
}

// SignInWithPassword exchanges an email/password pair for a session.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	if !govalidator.IsEmail(email) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid email address")
	}
	if password == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "password is required")
	}

	sess, err := s.provider.PasswordGrant(ctx, email, password)
	s.metrics.RecordSignIn(methodPassword, outcome(err))
	s.record(ctx, audit.ActionSignIn, methodPassword, sess, err)
	if err != nil {
		return nil, err
	}

	s.sessions.Establish(ctx, sess)
	return sess, nil
}

// SignUp registers a new account. The confirmation email links back to the
// app's callback deep link. A nil session with nil error means confirmation
// is pending.
func (s *Service) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	if !govalidator.IsEmail(email) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid email address")
	}
	if password == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "password is required")
	}

	sess, err := s.provider.SignUp(ctx, email, password, s.CallbackRedirect())
	s.metrics.RecordSignIn(methodSignUp, outcome(err))
	s.record(ctx, audit.ActionSignUp, methodSignUp, sess, err)
	if err != nil {
		return nil, err
	}

	if sess != nil {
		// Provider auto-confirmed the account and issued tokens directly.
		s.sessions.Establish(ctx, sess)
	}
	return sess, nil
}

// ResetPassword asks the provider to email a reset link pointing at the
// reset-password deep link.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	if !govalidator.IsEmail(email) {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid email address")
	}

	err := s.provider.Recover(ctx, email, s.ResetRedirect())
	s.record(ctx, audit.ActionPasswordReset, methodPassword, nil, err)
	return err
}

// ExchangeCode turns an authorization code into an established session.
func (s *Service) ExchangeCode(ctx context.Context, code string) (*models.Session, error) {
	sess, err := s.provider.ExchangeCode(ctx, code)
	s.metrics.RecordSignIn(methodCode, outcome(err))
	s.record(ctx, audit.ActionCodeExchange, methodCode, sess, err)
	if err != nil {
		return nil, err
	}

	s.sessions.Establish(ctx, sess)
	return sess, nil
}

// EstablishSession reconstructs a session from a token pair delivered via
// an email link and establishes it.
func (s *Service) EstablishSession(ctx context.Context, accessToken, refreshToken string) (*models.Session, error) {
	if accessToken == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "access token is required")
	}

	sess, err := s.provider.SetSession(ctx, accessToken, refreshToken)
	s.metrics.RecordSignIn(methodTokens, outcome(err))
	s.record(ctx, audit.ActionSetSession, methodTokens, sess, err)
	if err != nil {
		return nil, err
	}

	s.sessions.Establish(ctx, sess)
	return sess, nil
}

// Refresh exchanges the current refresh token for a fresh token pair.
func (s *Service) Refresh(ctx context.Context) (*models.Session, error) {
	current := s.sessions.Current()
	if current == nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no active session")
	}

	sess, err := s.provider.RefreshGrant(ctx, current.RefreshToken)
	s.metrics.RecordSignIn(methodRefresh, outcome(err))
	s.record(ctx, audit.ActionTokenRefresh, methodRefresh, sess, err)
	if err != nil {
		return nil, err
	}

	s.sessions.Refreshed(ctx, sess)
	return sess, nil
}

// CurrentUser fetches the authoritative user record for the active session.
func (s *Service) CurrentUser(ctx context.Context) (models.User, error) {
	current := s.sessions.Current()
	if current == nil {
		return models.User{}, dErrors.New(dErrors.CodeUnauthorized, "no active session")
	}
	return s.provider.CurrentUser(ctx, current.AccessToken)
}

// SignOut revokes the current session with the provider and clears it
// locally. The local session is dropped even when revocation fails; staying
// signed in on a dead token helps nobody.
func (s *Service) SignOut(ctx context.Context) error {
	current := s.sessions.Current()
	if current == nil {
		return nil
	}

	err := s.provider.SignOut(ctx, current.AccessToken)
	if err != nil {
		s.log.Warn("provider sign-out failed, clearing local session anyway", "error", err)
	}
	s.record(ctx, audit.ActionSignOut, methodSignOut, current, err)

	s.sessions.Clear(ctx)
	return nil
}

func (s *Service) record(ctx context.Context, action audit.Action, method string, sess *models.Session, err error) {
	event := audit.Event{Action: action, Method: method, Outcome: outcome(err)}
	if sess != nil {
		event.UserID = sess.User.ID.String()
	}
	if err != nil {
		event.Reason = err.Error()
	}
	if emitErr := s.audit.Emit(ctx, event); emitErr != nil {
		s.log.Warn("audit emit failed", "action", string(action), "error", emitErr)
	}
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
