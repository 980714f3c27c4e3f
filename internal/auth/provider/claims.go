package provider

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"aituki/internal/auth/models"
	id "aituki/pkg/domain"
	dErrors "aituki/pkg/domain-errors"
)

// accessTokenClaims is what this subsystem reads out of a provider-issued
// access token. Signature verification is the provider's job; tokens are
// parsed unverified purely to derive identity and expiry.
type accessTokenClaims struct {
	UserID    id.UserID
	Email     string
	ExpiresAt time.Time
	Metadata  map[string]string
}

func parseAccessToken(token string) (*accessTokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeProviderRejection, "malformed access token")
	}

	out := &accessTokenClaims{}

	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		userID, err := id.ParseUserID(sub)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeProviderRejection, "access token subject is not a user id")
		}
		out.UserID = userID
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}

	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}

	if raw, ok := claims["user_metadata"].(map[string]any); ok {
		out.Metadata = stringMap(raw)
	}

	return out, nil
}

// user builds the identity record carried on a session.
func (c *accessTokenClaims) user() models.User {
	return models.User{ID: c.UserID, Email: c.Email, Metadata: c.Metadata}
}

func (c *accessTokenClaims) expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

func stringMap(raw map[string]any) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
