package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aituki/internal/auth/models"
	"aituki/internal/platform/config"
	id "aituki/pkg/domain"
	dErrors "aituki/pkg/domain-errors"
)

// HTTPProvider talks to a GoTrue-dialect identity backend over REST.
type HTTPProvider struct {
	baseURL        string
	apiKey         string
	client         *http.Client
	log            *slog.Logger
	oauthProviders map[string]struct{}
	now            func() time.Time
}

// NewHTTP builds the provider client. oauthProviders lists the third-party
// providers the backend is configured for; AuthorizeURL rejects anything
// else before a browser ever opens.
func NewHTTP(cfg config.ProviderConfig, oauthProviders []string, log *slog.Logger) (*HTTPProvider, error) {
	if cfg.URL == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "provider URL is required")
	}

	supported := make(map[string]struct{}, len(oauthProviders))
	for _, name := range oauthProviders {
		supported[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	return &HTTPProvider{
		baseURL:        strings.TrimRight(cfg.URL, "/"),
		apiKey:         cfg.APIKey,
		client:         &http.Client{Timeout: cfg.Timeout},
		log:            log,
		oauthProviders: supported,
		now:            time.Now,
	}, nil
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	RefreshToken string       `json:"refresh_token"`
	User         *userPayload `json:"user"`
}

type userPayload struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type errorPayload struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
}

func (e errorPayload) message() string {
	switch {
	case e.ErrorDescription != "":
		return e.ErrorDescription
	case e.Msg != "":
		return e.Msg
	case e.Error != "":
		return e.Error
	}
	return "request rejected by identity provider"
}

func (p *HTTPProvider) PasswordGrant(ctx context.Context, email, password string) (*models.Session, error) {
	var resp tokenResponse
	query := url.Values{"grant_type": {"password"}}
	body := map[string]string{"email": email, "password": password}
	if err := p.do(ctx, http.MethodPost, "/token", query, body, &resp); err != nil {
		return nil, err
	}
	return p.session(resp)
}

func (p *HTTPProvider) SignUp(ctx context.Context, email, password, redirectTo string) (*models.Session, error) {
	var resp tokenResponse
	query := url.Values{"redirect_to": {redirectTo}}
	body := map[string]string{"email": email, "password": password}
	if err := p.do(ctx, http.MethodPost, "/signup", query, body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		// Confirmation pending; the session arrives via the emailed link.
		return nil, nil
	}
	return p.session(resp)
}

func (p *HTTPProvider) Recover(ctx context.Context, email, redirectTo string) error {
	query := url.Values{"redirect_to": {redirectTo}}
	body := map[string]string{"email": email}
	return p.do(ctx, http.MethodPost, "/recover", query, body, nil)
}

func (p *HTTPProvider) AuthorizeURL(_ context.Context, name, redirectTo string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", dErrors.New(dErrors.CodeConfiguration, "oauth provider name is required")
	}
	if _, ok := p.oauthProviders[name]; !ok {
		return "", dErrors.Newf(dErrors.CodeConfiguration, "unsupported oauth provider %q", name)
	}

	query := url.Values{
		"provider":    {name},
		"redirect_to": {redirectTo},
	}
	return p.baseURL + "/authorize?" + query.Encode(), nil
}

func (p *HTTPProvider) ExchangeCode(ctx context.Context, code string) (*models.Session, error) {
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "authorization code is required")
	}
	var resp tokenResponse
	query := url.Values{"grant_type": {"pkce"}}
	body := map[string]string{"auth_code": code}
	if err := p.do(ctx, http.MethodPost, "/token", query, body, &resp); err != nil {
		return nil, err
	}
	return p.session(resp)
}

func (p *HTTPProvider) SetSession(ctx context.Context, accessToken, refreshToken string) (*models.Session, error) {
	claims, err := parseAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	if claims.expired(p.now()) {
		if refreshToken == "" {
			return nil, dErrors.New(dErrors.CodeExpired, "access token expired and no refresh token supplied")
		}
		return p.RefreshGrant(ctx, refreshToken)
	}

	return &models.Session{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		RefreshToken: refreshToken,
		ExpiresAt:    claims.ExpiresAt,
		User:         claims.user(),
	}, nil
}

func (p *HTTPProvider) RefreshGrant(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "refresh token is required")
	}
	var resp tokenResponse
	query := url.Values{"grant_type": {"refresh_token"}}
	body := map[string]string{"refresh_token": refreshToken}
	if err := p.do(ctx, http.MethodPost, "/token", query, body, &resp); err != nil {
		return nil, err
	}
	return p.session(resp)
}

func (p *HTTPProvider) CurrentUser(ctx context.Context, accessToken string) (models.User, error) {
	if accessToken == "" {
		return models.User{}, dErrors.New(dErrors.CodeUnauthorized, "access token is required")
	}

	req, err := p.newRequest(ctx, http.MethodGet, "/user", nil, nil)
	if err != nil {
		return models.User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var payload userPayload
	if err := p.send(req, &payload); err != nil {
		return models.User{}, err
	}

	userID, err := id.ParseUserID(payload.ID)
	if err != nil {
		return models.User{}, dErrors.Wrap(err, dErrors.CodeProviderRejection, "provider returned invalid user id")
	}
	return models.User{
		ID:       userID,
		Email:    payload.Email,
		Metadata: stringMap(payload.UserMetadata),
	}, nil
}

func (p *HTTPProvider) SignOut(ctx context.Context, accessToken string) error {
	req, err := p.newRequest(ctx, http.MethodPost, "/logout", nil, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return p.send(req, nil)
}

// session assembles a domain session from a token response, falling back to
// access token claims for anything the payload omits.
func (p *HTTPProvider) session(resp tokenResponse) (*models.Session, error) {
	if resp.AccessToken == "" {
		return nil, dErrors.New(dErrors.CodeProviderRejection, "provider response missing access token")
	}

	claims, err := parseAccessToken(resp.AccessToken)
	if err != nil {
		return nil, err
	}

	user := claims.user()
	if resp.User != nil {
		if resp.User.ID != "" {
			userID, err := id.ParseUserID(resp.User.ID)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeProviderRejection, "provider returned invalid user id")
			}
			user.ID = userID
		}
		if resp.User.Email != "" {
			user.Email = resp.User.Email
		}
		if md := stringMap(resp.User.UserMetadata); md != nil {
			user.Metadata = md
		}
	}

	expiresAt := claims.ExpiresAt
	if resp.ExpiresIn > 0 {
		expiresAt = p.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	tokenType := resp.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}

	return &models.Session{
		AccessToken:  resp.AccessToken,
		TokenType:    tokenType,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := p.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	return p.send(req, out)
}

func (p *HTTPProvider) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	endpoint := p.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build provider request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}
	return req, nil
}

func (p *HTTPProvider) send(req *http.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNetwork, "identity provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload errorPayload
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		p.log.Warn("provider rejected request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
		)
		return dErrors.New(dErrors.CodeProviderRejection,
			fmt.Sprintf("%s (status %d)", payload.message(), resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeProviderRejection, "decode provider response")
	}
	return nil
}
