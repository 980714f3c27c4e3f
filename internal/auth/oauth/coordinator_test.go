package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"aituki/internal/audit"
	"aituki/internal/auth/metrics"
	"aituki/internal/auth/models"
	"aituki/internal/platform/logger"
	dErrors "aituki/pkg/domain-errors"
)

type fakeURLSource struct {
	url string
	err error

	gotProvider string
	gotRedirect string
}

func (f *fakeURLSource) AuthorizeURL(_ context.Context, name, redirectTo string) (string, error) {
	f.gotProvider = name
	f.gotRedirect = redirectTo
	return f.url, f.err
}

type fakeExchanger struct {
	session *models.Session
	err     error

	gotCode string
	calls   int
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, code string) (*models.Session, error) {
	f.calls++
	f.gotCode = code
	return f.session, f.err
}

type fakeBrowser struct {
	result models.RedirectResult

	gotAuthURL  string
	gotRedirect string
}

func (f *fakeBrowser) OpenAuthSession(_ context.Context, authURL, redirectTo string) models.RedirectResult {
	f.gotAuthURL = authURL
	f.gotRedirect = redirectTo
	return f.result
}

type CoordinatorSuite struct {
	suite.Suite
	urls      *fakeURLSource
	exchanger *fakeExchanger
	browser   *fakeBrowser
	trail     *audit.InMemoryStore
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.urls = &fakeURLSource{url: "https://provider.example/authorize?provider=google"}
	s.exchanger = &fakeExchanger{}
	s.browser = &fakeBrowser{}
	s.trail = audit.NewMemoryStore()
}

func (s *CoordinatorSuite) newCoordinator() *Coordinator {
	return New(
		s.urls,
		s.exchanger,
		s.browser,
		"aitukinative://auth/callback",
		time.Minute,
		metrics.New(prometheus.NewRegistry()),
		audit.NewPublisher(s.trail),
		logger.New(),
	)
}

func (s *CoordinatorSuite) TestSignInSuccess() {
	sess := &models.Session{AccessToken: "tok-1"}
	s.exchanger.session = sess
	s.browser.result = models.RedirectResult{
		Status: models.RedirectSuccess,
		URL:    "aitukinative://auth/callback?code=abc123",
	}

	got, err := s.newCoordinator().SignIn(context.Background(), "google")
	s.Require().NoError(err)
	s.Same(sess, got)

	s.Equal("google", s.urls.gotProvider)
	s.Equal("aitukinative://auth/callback", s.urls.gotRedirect)
	s.Equal(s.urls.url, s.browser.gotAuthURL)
	s.Equal("abc123", s.exchanger.gotCode)
}

// TestSignInCancelled verifies a cancelled browser flow never reaches the
// code exchange, so no session can be established from it.
func (s *CoordinatorSuite) TestSignInCancelled() {
	s.browser.result = models.RedirectResult{Status: models.RedirectCancelled}

	_, err := s.newCoordinator().SignIn(context.Background(), "google")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCancelled))
	s.Zero(s.exchanger.calls, "cancelled flows must not exchange a code")
}

func (s *CoordinatorSuite) TestSignInFailedPreservesReason() {
	s.browser.result = models.RedirectResult{
		Status: models.RedirectFailed,
		Reason: "browser crashed",
	}

	_, err := s.newCoordinator().SignIn(context.Background(), "google")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeProviderRejection))
	s.Contains(err.Error(), "browser crashed")
	s.Zero(s.exchanger.calls)
}

func (s *CoordinatorSuite) TestSignInRedirectVariants() {
	s.Run("provider error parameters beat a missing code", func() {
		s.browser.result = models.RedirectResult{
			Status: models.RedirectSuccess,
			URL:    "aitukinative://auth/callback?error=access_denied&error_description=User+denied+access",
		}

		_, err := s.newCoordinator().SignIn(context.Background(), "apple")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeProviderRejection))
		s.Contains(err.Error(), "User denied access")
		s.Zero(s.exchanger.calls)
	})

	s.Run("missing code on a success redirect is a provider failure", func() {
		s.browser.result = models.RedirectResult{
			Status: models.RedirectSuccess,
			URL:    "aitukinative://auth/callback",
		}

		_, err := s.newCoordinator().SignIn(context.Background(), "apple")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeProviderRejection))
	})
}

func (s *CoordinatorSuite) TestSignInExchangeFailure() {
	s.browser.result = models.RedirectResult{
		Status: models.RedirectSuccess,
		URL:    "aitukinative://auth/callback?code=abc123",
	}
	s.exchanger.err = dErrors.New(dErrors.CodeProviderRejection, "code expired")

	_, err := s.newCoordinator().SignIn(context.Background(), "google")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeProviderRejection))
	s.Equal(1, s.exchanger.calls)
}

func (s *CoordinatorSuite) TestSignInAuthorizeURLFailure() {
	s.urls.err = dErrors.New(dErrors.CodeConfiguration, `unsupported oauth provider "myspace"`)

	_, err := s.newCoordinator().SignIn(context.Background(), "myspace")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
	s.Empty(s.browser.gotAuthURL, "browser must not open without an authorize URL")
}

func (s *CoordinatorSuite) TestSignInRecordsAuditTrail() {
	s.browser.result = models.RedirectResult{Status: models.RedirectCancelled}

	_, err := s.newCoordinator().SignIn(context.Background(), "google")
	s.Require().Error(err)

	events := s.trail.All()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionOAuthFlow, events[0].Action)
	s.Equal("google", events[0].Method)
	s.Equal("failure", events[0].Outcome)
	s.Contains(events[0].Reason, "cancelled")
}

// TestIdenticalFlowAcrossProviders pins the requirement that provider
// identity only parameterizes the flow, never changes its shape.
func (s *CoordinatorSuite) TestIdenticalFlowAcrossProviders() {
	for _, name := range []string{"apple", "google"} {
		s.Run(name, func() {
			s.SetupTest()
			s.exchanger.session = &models.Session{AccessToken: "tok-" + name}
			s.browser.result = models.RedirectResult{
				Status: models.RedirectSuccess,
				URL:    "aitukinative://auth/callback?code=code-" + name,
			}

			got, err := s.newCoordinator().SignIn(context.Background(), name)
			s.Require().NoError(err)
			s.Equal("tok-"+name, got.AccessToken)
			s.Equal(name, s.urls.gotProvider)
			s.Equal("code-"+name, s.exchanger.gotCode)
		})
	}
}
