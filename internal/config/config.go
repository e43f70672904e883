package config

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// DefaultJWTSecret is only acceptable outside of prod.
const DefaultJWTSecret = "dev-insecure-secret"

type Config struct {
	Port string `env:"PORT, default=8000"`

	// Env is "dev" (default) or "prod". When "prod", JWT_SECRET must be set and not the default.
	Env string `env:"ENV, default=dev"`

	// LogLevel is trace, debug, info, warn or error.
	LogLevel string `env:"LOG_LEVEL, default=info"`
	// LogFormat is "text" (default) or "json" for structured logging.
	LogFormat string `env:"LOG_FORMAT, default=text"`

	DB DBConfig

	JWTSecret string `env:"JWT_SECRET, default=dev-insecure-secret"`
	// AccessTokenTTL is the lifetime of tokens issued by POST /token.
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL, default=30m"`
	BcryptCost     int           `env:"BCRYPT_COST, default=10"`

	// UploadDir holds uploaded files; it is served under /uploads/.
	UploadDir string `env:"UPLOAD_DIR, default=uploads"`
	// PublicBaseURL prefixes every asset file_url, e.g. http://localhost:8000/uploads/cat.png.
	PublicBaseURL  string `env:"PUBLIC_BASE_URL, default=http://localhost:8000"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES, default=33554432"`

	// CORSAllowedOrigins is a comma-separated list of origins; "*" allows any origin.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=*"`

	// AuthRatePerMinute limits POST /users/ and POST /token per client IP. 0 disables the limiter.
	AuthRatePerMinute int `env:"AUTH_RATE_PER_MINUTE, default=10"`
	AuthRateBurst     int `env:"AUTH_RATE_BURST, default=5"`

	// TrustedProxies lists proxy addresses or CIDR prefixes whose X-Forwarded-For and
	// X-Real-IP headers are honoured. Empty means forwarding headers are ignored.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string `env:"TLS_CERT_FILE"`
	TLSKeyFile  string `env:"TLS_KEY_FILE"`
}

type DBConfig struct {
	Host    string `env:"DB_HOST, default=localhost"`
	Port    string `env:"DB_PORT, default=5432"`
	Name    string `env:"DB_NAME, default=assetdb"`
	User    string `env:"DB_USER, default=assetuser"`
	Pass    string `env:"DB_PASS, default=assetpass"`
	SSLMode string `env:"DB_SSLMODE, default=disable"`

	MaxOpenConns int `env:"DB_MAX_OPEN_CONNS, default=25"`
	MaxIdleConns int `env:"DB_MAX_IDLE_CONNS, default=5"`

	// AutoMigrate applies embedded migrations at startup.
	AutoMigrate bool `env:"DB_AUTO_MIGRATE, default=true"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from an arbitrary lookuper and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Env == "prod" && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return errors.New("config: JWT_SECRET must be set in prod")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must not be empty")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("config: TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("config: ACCESS_TOKEN_TTL must be positive")
	}
	for _, p := range c.TrustedProxies {
		if !validProxy(strings.TrimSpace(p)) {
			return fmt.Errorf("config: TRUSTED_PROXIES entry %q is not an IP or CIDR", p)
		}
	}
	return nil
}

func validProxy(s string) bool {
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

// TLSEnabled reports whether the API should serve HTTPS.
func (c Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// DSN returns a lib/pq keyword/value connection string.
func (d DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Pass, d.SSLMode,
	)
}

// URL returns the postgres:// form used by the migrator.
func (d DBConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Pass),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
