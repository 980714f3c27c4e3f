package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"aituki/internal/auth/models"
	"aituki/pkg/platform/sentinel"
)

// sessionKey holds the single persisted session. One session is active
// process-wide at any time, so a fixed key is enough.
const sessionKey = "aituki:auth:session"

// RedisStore persists the session in Redis so it survives restarts.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, session *models.Session) error {
	encoded, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	// No TTL: the refresh token outlives the access token and the provider
	// decides when the pair stops being exchangeable.
	if err := s.client.Set(ctx, sessionKey, encoded, 0).Err(); err != nil {
		return fmt.Errorf("save session: %w: %w", err, sentinel.ErrUnavailable)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (*models.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("no persisted session: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w: %w", err, sentinel.ErrUnavailable)
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, sessionKey).Err(); err != nil {
		return fmt.Errorf("clear session: %w: %w", err, sentinel.ErrUnavailable)
	}
	return nil
}
