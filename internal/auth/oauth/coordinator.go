// Package oauth drives browser-based third-party sign-in flows to
// completion: authorize URL, interactive browser session, redirect parsing,
// and code exchange.
package oauth

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"aituki/internal/audit"
	"aituki/internal/auth/metrics"
	"aituki/internal/auth/models"
	dErrors "aituki/pkg/domain-errors"
)

// Browser is the interactive browser session primitive. Implementations
// open authURL, wait for the provider to redirect back to redirectTo, and
// resolve with exactly one terminal result. Cancelling ctx must resolve the
// flow as cancelled rather than hang.
type Browser interface {
	OpenAuthSession(ctx context.Context, authURL, redirectTo string) models.RedirectResult
}

// URLSource supplies provider authorization URLs.
type URLSource interface {
	AuthorizeURL(ctx context.Context, name, redirectTo string) (string, error)
}

// CodeExchanger turns an authorization code into an established session.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*models.Session, error)
}

// Coordinator runs one OAuth flow at a time. The control flow is identical
// for every provider; only the provider identifier differs.
type Coordinator struct {
	urls      URLSource
	exchanger CodeExchanger
	browser   Browser
	redirect  string
	timeout   time.Duration
	metrics   *metrics.Metrics
	audit     *audit.Publisher
	log       *slog.Logger
}

// New builds a coordinator. redirect is the terminal redirect target the
// browser flow ends at; timeout bounds the whole browser round trip (zero
// means no bound beyond the caller's context).
func New(urls URLSource, exchanger CodeExchanger, browser Browser, redirect string, timeout time.Duration, m *metrics.Metrics, aud *audit.Publisher, log *slog.Logger) *Coordinator {
	return &Coordinator{
		urls:      urls,
		exchanger: exchanger,
		browser:   browser,
		redirect:  redirect,
		timeout:   timeout,
		metrics:   m,
		audit:     aud,
		log:       log,
	}
}

// SignIn completes a browser-based sign-in with the named third-party
// provider. A cancelled browser session never establishes a session, and the
// cancelled/failed distinction is preserved in the returned error code.
func (c *Coordinator) SignIn(ctx context.Context, providerName string) (*models.Session, error) {
	sess, err := c.signIn(ctx, providerName)
	c.record(ctx, providerName, sess, err)
	return sess, err
}

func (c *Coordinator) signIn(ctx context.Context, providerName string) (*models.Session, error) {
	authURL, err := c.urls.AuthorizeURL(ctx, providerName, c.redirect)
	if err != nil {
		c.metrics.RecordOAuthFlow(providerName, "config_error")
		return nil, err
	}

	flowCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		flowCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result := c.browser.OpenAuthSession(flowCtx, authURL, c.redirect)
	switch result.Status {
	case models.RedirectCancelled:
		c.metrics.RecordOAuthFlow(providerName, "cancelled")
		return nil, dErrors.New(dErrors.CodeCancelled, "oauth flow cancelled")
	case models.RedirectFailed:
		c.metrics.RecordOAuthFlow(providerName, "failed")
		return nil, dErrors.Newf(dErrors.CodeProviderRejection, "oauth flow failed: %s", result.Reason)
	}

	code, err := extractCode(result.URL)
	if err != nil {
		c.metrics.RecordOAuthFlow(providerName, "failed")
		return nil, err
	}

	sess, err := c.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		c.metrics.RecordOAuthFlow(providerName, "exchange_failed")
		c.log.Warn("authorization code exchange failed", "provider", providerName, "error", err)
		return nil, err
	}

	c.metrics.RecordOAuthFlow(providerName, "success")
	return sess, nil
}

func (c *Coordinator) record(ctx context.Context, providerName string, sess *models.Session, err error) {
	event := audit.Event{Action: audit.ActionOAuthFlow, Method: providerName, Outcome: "success"}
	if sess != nil {
		event.UserID = sess.User.ID.String()
	}
	if err != nil {
		event.Outcome = "failure"
		event.Reason = err.Error()
	}
	if emitErr := c.audit.Emit(ctx, event); emitErr != nil {
		c.log.Warn("audit emit failed", "action", string(audit.ActionOAuthFlow), "error", emitErr)
	}
}

// extractCode pulls the authorization code out of the final redirect URL.
// Providers report their own failures as error query parameters on the
// redirect, so those take precedence over a missing code.
func extractCode(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeProviderRejection, "malformed redirect URL")
	}

	query := parsed.Query()
	if errCode := query.Get("error"); errCode != "" {
		description := query.Get("error_description")
		if description == "" {
			description = errCode
		}
		return "", dErrors.Newf(dErrors.CodeProviderRejection, "provider returned %s: %s", errCode, description)
	}

	code := query.Get("code")
	if code == "" {
		return "", dErrors.New(dErrors.CodeProviderRejection, "redirect missing authorization code")
	}
	return code, nil
}
