// Package config loads process configuration from environment variables so
// main stays lean.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the auth subsystem needs at startup.
type Config struct {
	// Addr is the listen address for the deep-link HTTP surface.
	Addr string `env:"AITUKI_ADDR" envDefault:":8080"`

	// AppScheme is the deep-link scheme used for redirect targets. Left
	// empty, the service layer falls back to its built-in default scheme.
	AppScheme string `env:"AITUKI_APP_SCHEME"`

	Provider ProviderConfig
	OAuth    OAuthConfig
	Redis    RedisConfig
}

// ProviderConfig points at the identity provider backend.
type ProviderConfig struct {
	URL     string        `env:"AITUKI_PROVIDER_URL"`
	APIKey  string        `env:"AITUKI_PROVIDER_KEY"`
	Timeout time.Duration `env:"AITUKI_PROVIDER_TIMEOUT" envDefault:"15s"`
}

// OAuthConfig bounds the interactive browser flow.
type OAuthConfig struct {
	// Providers lists the third-party identity providers a user may pick.
	Providers []string `env:"AITUKI_OAUTH_PROVIDERS" envDefault:"apple,google"`
	// FlowTimeout bounds the whole browser round trip. The underlying
	// browser primitive has no timeout of its own, so this is the only
	// guarantee the flow terminates.
	FlowTimeout time.Duration `env:"AITUKI_OAUTH_TIMEOUT" envDefault:"2m"`
	// LoopbackAddr is where the loopback redirect catcher listens. The
	// port must match the redirect URI registered with the provider, so
	// it is fixed rather than ephemeral.
	LoopbackAddr string `env:"AITUKI_OAUTH_LOOPBACK_ADDR" envDefault:"127.0.0.1:53682"`
}

// RedisConfig configures optional Redis-backed session persistence.
// An empty URL means sessions live in memory only.
type RedisConfig struct {
	URL          string        `env:"AITUKI_REDIS_URL"`
	PoolSize     int           `env:"AITUKI_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"AITUKI_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"AITUKI_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"AITUKI_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"AITUKI_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// Load parses the full configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
