package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "PIXELBRIDGE"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App     AppConfig
	Redis   RedisConfig
	Shopify ShopifyConfig
	Events  EventsConfig
	Pixel   PixelConfig
	OAuth   OAuthConfig
	Cleanup CleanupConfig
	Cron    CronConfig
}

// Load reads the process configuration once at startup. The returned
// struct is treated as immutable afterwards.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Shopify.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PIXELBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"PIXELBRIDGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PIXELBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PIXELBRIDGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"PIXELBRIDGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PIXELBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"PIXELBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PIXELBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PIXELBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PIXELBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PIXELBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PIXELBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PIXELBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ShopifyConfig holds the Admin API credentials and the public app surface.
type ShopifyConfig struct {
	APIKey     string        `envconfig:"PIXELBRIDGE_SHOPIFY_API_KEY" required:"true"`
	APISecret  string        `envconfig:"PIXELBRIDGE_SHOPIFY_API_SECRET" required:"true"`
	AppURL     string        `envconfig:"PIXELBRIDGE_SHOPIFY_APP_URL" required:"true"`
	Scopes     string        `envconfig:"PIXELBRIDGE_SHOPIFY_SCOPES" default:"write_pixels,read_orders,read_analytics"`
	APIVersion string        `envconfig:"PIXELBRIDGE_SHOPIFY_API_VERSION" default:"2024-01"`
	APITimeout time.Duration `envconfig:"PIXELBRIDGE_SHOPIFY_API_TIMEOUT" default:"10s"`
}

func (s *ShopifyConfig) normalize() error {
	// envconfig's required tag only catches unset variables, not
	// set-but-empty ones.
	if strings.TrimSpace(s.APIKey) == "" {
		return fmt.Errorf("PIXELBRIDGE_SHOPIFY_API_KEY must not be empty")
	}
	if strings.TrimSpace(s.APISecret) == "" {
		return fmt.Errorf("PIXELBRIDGE_SHOPIFY_API_SECRET must not be empty")
	}
	s.AppURL = strings.TrimRight(strings.TrimSpace(s.AppURL), "/")
	if !strings.HasPrefix(s.AppURL, "http://") && !strings.HasPrefix(s.AppURL, "https://") {
		return fmt.Errorf("PIXELBRIDGE_SHOPIFY_APP_URL must be an absolute URL")
	}
	return nil
}

type EventsConfig struct {
	ListCap         int64 `envconfig:"PIXELBRIDGE_EVENTS_LIST_CAP" default:"1000"`
	DefaultPageSize int   `envconfig:"PIXELBRIDGE_EVENTS_DEFAULT_PAGE_SIZE" default:"50"`
	MaxPageSize     int   `envconfig:"PIXELBRIDGE_EVENTS_MAX_PAGE_SIZE" default:"100"`
}

type PixelConfig struct {
	CacheTTL time.Duration `envconfig:"PIXELBRIDGE_PIXEL_CACHE_TTL" default:"5m"`
}

type OAuthConfig struct {
	StateTTL   time.Duration `envconfig:"PIXELBRIDGE_OAUTH_STATE_TTL" default:"5m"`
	SessionTTL time.Duration `envconfig:"PIXELBRIDGE_OAUTH_SESSION_TTL" default:"24h"`
}

type CleanupConfig struct {
	TombstoneTTL time.Duration `envconfig:"PIXELBRIDGE_CLEANUP_TOMBSTONE_TTL" default:"720h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"PIXELBRIDGE_CRON_INTERVAL" default:"6h"`
	LockTTL  time.Duration `envconfig:"PIXELBRIDGE_CRON_LOCK_TTL" default:"1h"`
}
