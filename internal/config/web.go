package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// WebConfig configures the gallery UI served by cmd/web.
type WebConfig struct {
	Port string `env:"WEB_PORT, default=3000"`

	// APIURL is where the gallery sends every request; DAM_API_URL is shared with the CLI.
	APIURL string `env:"DAM_API_URL, default=http://localhost:8000"`

	LogLevel  string `env:"LOG_LEVEL, default=info"`
	LogFormat string `env:"LOG_FORMAT, default=text"`

	// CookieSecure marks session cookies Secure. Turn it on when the gallery is behind HTTPS.
	CookieSecure bool `env:"WEB_COOKIE_SECURE, default=false"`

	// SessionTTL bounds the cookie lifetime. Keep it at or below ACCESS_TOKEN_TTL.
	SessionTTL time.Duration `env:"WEB_SESSION_TTL, default=30m"`

	// MaxUploadBytes caps the upload form the gallery accepts before forwarding it.
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES, default=33554432"`

	// APITimeout applies to every call the gallery makes to the API.
	APITimeout time.Duration `env:"WEB_API_TIMEOUT, default=2m"`
}

// LoadWeb reads gallery configuration from the process environment.
func LoadWeb(ctx context.Context) (WebConfig, error) {
	return LoadWebWith(ctx, envconfig.OsLookuper())
}

// LoadWebWith reads gallery configuration from l and validates it.
func LoadWebWith(ctx context.Context, l envconfig.Lookuper) (WebConfig, error) {
	var cfg WebConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return WebConfig{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return WebConfig{}, err
	}
	return cfg, nil
}

func (c WebConfig) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: DAM_API_URL %q must be an absolute http(s) URL", c.APIURL)
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: WEB_SESSION_TTL must be positive")
	}
	if c.APITimeout <= 0 {
		return errors.New("config: WEB_API_TIMEOUT must be positive")
	}
	return nil
}
