// Package provider defines the identity provider contract and its HTTP
// implementation. All credential validation, OAuth negotiation, and token
// issuance happens on the provider side; this package only speaks its
// wire dialect.
package provider

import (
	"context"

	"aituki/internal/auth/models"
)

// Provider is the collaborator contract for the external identity backend.
//
// Every method returns coded domain errors (pkg/domain-errors): provider
// rejections carry CodeProviderRejection, transport failures CodeNetwork,
// and misconfiguration CodeConfiguration.
type Provider interface {
	// PasswordGrant exchanges an email/password pair for a session.
	PasswordGrant(ctx context.Context, email, password string) (*models.Session, error)

	// SignUp registers a new account. The confirmation email links back to
	// redirectTo. When the provider auto-confirms accounts a session is
	// returned immediately; otherwise the session is nil until the user
	// follows the emailed link.
	SignUp(ctx context.Context, email, password, redirectTo string) (*models.Session, error)

	// Recover sends a password-reset email linking back to redirectTo.
	Recover(ctx context.Context, email, redirectTo string) error

	// AuthorizeURL returns the browser URL that starts an OAuth flow with
	// the named third-party provider, terminating at redirectTo.
	AuthorizeURL(ctx context.Context, name, redirectTo string) (string, error)

	// ExchangeCode turns an authorization code into a session.
	ExchangeCode(ctx context.Context, code string) (*models.Session, error)

	// SetSession reconstructs a session from a token pair delivered out of
	// band (email confirmation links). Expired access tokens are refreshed.
	SetSession(ctx context.Context, accessToken, refreshToken string) (*models.Session, error)

	// RefreshGrant exchanges a refresh token for a fresh session.
	RefreshGrant(ctx context.Context, refreshToken string) (*models.Session, error)

	// CurrentUser fetches the authoritative user record behind the access
	// token. Token claims can lag behind profile changes; this does not.
	CurrentUser(ctx context.Context, accessToken string) (models.User, error)

	// SignOut revokes the session behind the access token.
	SignOut(ctx context.Context, accessToken string) error
}
