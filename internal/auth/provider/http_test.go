package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"aituki/internal/platform/config"
	"aituki/internal/platform/logger"
	dErrors "aituki/pkg/domain-errors"
)

type HTTPProviderSuite struct {
	suite.Suite
	userID uuid.UUID
}

func TestHTTPProviderSuite(t *testing.T) {
	suite.Run(t, new(HTTPProviderSuite))
}

func (s *HTTPProviderSuite) SetupTest() {
	s.userID = uuid.New()
}

// signToken issues an HS256 access token the way the backend would.
func (s *HTTPProviderSuite) signToken(expiresAt time.Time) string {
	claims := jwt.MapClaims{
		"sub":   s.userID.String(),
		"email": "user@example.com",
		"exp":   expiresAt.Unix(),
		"user_metadata": map[string]any{
			"display_name": "Test User",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	s.Require().NoError(err)
	return token
}

func (s *HTTPProviderSuite) newProvider(backendURL string) *HTTPProvider {
	p, err := NewHTTP(config.ProviderConfig{
		URL:     backendURL,
		APIKey:  "anon-key",
		Timeout: 5 * time.Second,
	}, []string{"apple", "google"}, logger.New())
	s.Require().NoError(err)
	return p
}

func (s *HTTPProviderSuite) TestPasswordGrant() {
	s.Run("returns a session on success", func() {
		access := s.signToken(time.Now().Add(time.Hour))
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal(http.MethodPost, r.Method)
			s.Equal("/token", r.URL.Path)
			s.Equal("password", r.URL.Query().Get("grant_type"))
			s.Equal("anon-key", r.Header.Get("apikey"))

			var body map[string]string
			s.Require().NoError(json.NewDecoder(r.Body).Decode(&body))
			s.Equal("user@example.com", body["email"])

			s.Require().NoError(json.NewEncoder(w).Encode(map[string]any{
				"access_token":  access,
				"token_type":    "bearer",
				"expires_in":    3600,
				"refresh_token": "refresh-1",
				"user": map[string]any{
					"id":    s.userID.String(),
					"email": "user@example.com",
				},
			}))
		}))
		defer backend.Close()

		sess, err := s.newProvider(backend.URL).PasswordGrant(context.Background(), "user@example.com", "hunter2")
		s.Require().NoError(err)
		s.Equal(access, sess.AccessToken)
		s.Equal("refresh-1", sess.RefreshToken)
		s.Equal("user@example.com", sess.User.Email)
		s.Equal(s.userID.String(), sess.User.ID.String())
		s.WithinDuration(time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)
	})

	s.Run("maps rejection to provider rejection code", func() {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid login credentials",
			})
		}))
		defer backend.Close()

		_, err := s.newProvider(backend.URL).PasswordGrant(context.Background(), "user@example.com", "wrong")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeProviderRejection))
		s.Contains(err.Error(), "Invalid login credentials")
	})

	s.Run("maps transport failure to network code", func() {
		backend := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		backend.Close() // connection refused from here on

		_, err := s.newProvider(backend.URL).PasswordGrant(context.Background(), "user@example.com", "hunter2")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNetwork))
	})
}

func (s *HTTPProviderSuite) TestSignUp() {
	s.Run("forwards the redirect target and reports pending confirmation", func() {
		var gotRedirect string
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("/signup", r.URL.Path)
			gotRedirect = r.URL.Query().Get("redirect_to")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":    s.userID.String(),
				"email": "new@example.com",
			})
		}))
		defer backend.Close()

		sess, err := s.newProvider(backend.URL).SignUp(context.Background(), "new@example.com", "hunter2", "aitukinative://auth/callback")
		s.Require().NoError(err)
		s.Nil(sess, "no session until the confirmation link is followed")
		s.Equal("aitukinative://auth/callback", gotRedirect)
	})
}

func (s *HTTPProviderSuite) TestAuthorizeURL() {
	p := s.newProvider("http://localhost:9999")

	s.Run("builds the authorize URL for a supported provider", func() {
		got, err := p.AuthorizeURL(context.Background(), "google", "aitukinative://auth/callback")
		s.Require().NoError(err)
		s.Contains(got, "/authorize?")
		s.Contains(got, "provider=google")
		s.Contains(got, "redirect_to=aitukinative%3A%2F%2Fauth%2Fcallback")
	})

	s.Run("rejects an unsupported provider", func() {
		_, err := p.AuthorizeURL(context.Background(), "myspace", "aitukinative://auth/callback")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
	})
}

func (s *HTTPProviderSuite) TestSetSession() {
	s.Run("builds a session from a live token pair without a network call", func() {
		access := s.signToken(time.Now().Add(time.Hour))
		p := s.newProvider("http://localhost:9999") // never dialled

		sess, err := p.SetSession(context.Background(), access, "refresh-1")
		s.Require().NoError(err)
		s.Equal(access, sess.AccessToken)
		s.Equal("refresh-1", sess.RefreshToken)
		s.Equal(s.userID.String(), sess.User.ID.String())
		s.Equal("Test User", sess.User.Metadata["display_name"])
	})

	s.Run("refreshes when the access token is expired", func() {
		expired := s.signToken(time.Now().Add(-time.Hour))
		fresh := s.signToken(time.Now().Add(time.Hour))
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("refresh_token", r.URL.Query().Get("grant_type"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  fresh,
				"expires_in":    3600,
				"refresh_token": "refresh-2",
			})
		}))
		defer backend.Close()

		sess, err := s.newProvider(backend.URL).SetSession(context.Background(), expired, "refresh-1")
		s.Require().NoError(err)
		s.Equal(fresh, sess.AccessToken)
		s.Equal("refresh-2", sess.RefreshToken)
	})

	s.Run("rejects an expired token with no refresh token", func() {
		expired := s.signToken(time.Now().Add(-time.Hour))
		_, err := s.newProvider("http://localhost:9999").SetSession(context.Background(), expired, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	})

	s.Run("rejects garbage tokens", func() {
		_, err := s.newProvider("http://localhost:9999").SetSession(context.Background(), "not-a-jwt", "refresh-1")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeProviderRejection))
	})
}

func (s *HTTPProviderSuite) TestCurrentUser() {
	s.Run("fetches the user with the bearer token", func() {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal(http.MethodGet, r.Method)
			s.Equal("/user", r.URL.Path)
			s.Equal("Bearer tok-1", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":    s.userID.String(),
				"email": "user@example.com",
				"user_metadata": map[string]any{
					"display_name": "Test User",
				},
			})
		}))
		defer backend.Close()

		user, err := s.newProvider(backend.URL).CurrentUser(context.Background(), "tok-1")
		s.Require().NoError(err)
		s.Equal(s.userID.String(), user.ID.String())
		s.Equal("user@example.com", user.Email)
		s.Equal("Test User", user.Metadata["display_name"])
	})

	s.Run("rejects an empty access token locally", func() {
		_, err := s.newProvider("http://localhost:9999").CurrentUser(context.Background(), "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *HTTPProviderSuite) TestNewHTTPRequiresURL() {
	_, err := NewHTTP(config.ProviderConfig{}, nil, logger.New())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
}
