package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds the story server settings.
type Config struct {
	// Server
	Port        string   `envconfig:"STORY_SERVER_PORT" default:"8080"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string   `envconfig:"LOG_ENCODING" default:"json"`
	CORSOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`

	// PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" default:"postgres"`
	DBName        string        `envconfig:"DB_NAME" default:"stories"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Secret, not read by envconfig.
	DBPassword string `ignored:"true"`

	// Redis; empty URL keeps sessions in memory and disables the story cache.
	RedisURL      string        `envconfig:"REDIS_URL"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	StoryCacheTTL time.Duration `envconfig:"STORY_CACHE_TTL" default:"10m"`

	// RabbitMQ; empty URL disables sync events.
	RabbitMQURL    string `envconfig:"RABBITMQ_URL"`
	StorySyncQueue string `envconfig:"STORY_SYNC_QUEUE" default:"story_sync_events"`

	RevealInterval time.Duration `envconfig:"REVEAL_INTERVAL" default:"30ms"`
	ImportMaxNodes int           `envconfig:"IMPORT_MAX_NODES" default:"5000"`
	DefaultTheme   string        `envconfig:"DEFAULT_THEME" default:"christmas"`

	// Secret; empty disables owner tokens.
	JWTSecret string `ignored:"true"`
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig reads .env (if present), the environment and the secrets.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load story server config: %w", err)
	}
	switch cfg.StorageDriver {
	case StoragePostgres, StorageMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	var err error
	if cfg.StorageDriver == StoragePostgres {
		cfg.DBPassword, err = ReadSecret("db_password", "DB_PASSWORD")
		if err != nil {
			return nil, err
		}
	}
	cfg.JWTSecret, _ = ReadSecret("jwt_secret", "JWT_SECRET")
	return &cfg, nil
}
