package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server      ServerConfig
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Marketplace MarketplaceConfig
	Sync        SyncConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"vintedsync"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `envconfig:"DB_PATH" default:"./data/vintedsync.db"`
}

// RedisConfig holds the optional Redis session store settings. When disabled
// the service falls back to in-memory sessions.
type RedisConfig struct {
	Enabled   bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Addr      string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	Password  string `envconfig:"REDIS_PASSWORD" default:""`
	DB        int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"vintedsync:session"`
}

// MarketplaceConfig holds marketplace client settings.
type MarketplaceConfig struct {
	BaseURL       string        `envconfig:"MARKETPLACE_BASE_URL" default:"https://www.vinted.fr"`
	RatePerSecond float64       `envconfig:"MARKETPLACE_RATE_PER_SECOND" default:"1"`
	Burst         int           `envconfig:"MARKETPLACE_BURST" default:"2"`
	CachePath     string        `envconfig:"MARKETPLACE_CACHE_PATH" default:"./data/search_cache.json"`
	CacheTTL      time.Duration `envconfig:"MARKETPLACE_CACHE_TTL" default:"15m"`
}

// SyncConfig holds background sync scheduling settings.
type SyncConfig struct {
	Enabled  bool          `envconfig:"SYNC_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"SYNC_INTERVAL" default:"30m"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
