package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-faster/errors"
)

const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	// Cart persistence
	CartBackend string `env:"CART_BACKEND" envDefault:"sqlite"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"./shopcore.db"`
	MongoURI    string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDBName string `env:"MONGO_DB_NAME" envDefault:"shopcore"`

	// Catalog
	CatalogBaseURL  string        `env:"CATALOG_BASE_URL" envDefault:"https://fakestoreapi.com"`
	CatalogTimeout  time.Duration `env:"CATALOG_TIMEOUT" envDefault:"10s"`
	CatalogCache    string        `env:"CATALOG_CACHE" envDefault:"memory"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"15m"`
	DefaultCategory string        `env:"DEFAULT_CATEGORY" envDefault:"electronics"`
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.CartBackend {
	case BackendSQLite, BackendMongo:
	default:
		return errors.Errorf("unknown CART_BACKEND %q", c.CartBackend)
	}
	switch c.CatalogCache {
	case CacheMemory, CacheRedis:
	default:
		return errors.Errorf("unknown CATALOG_CACHE %q", c.CatalogCache)
	}
	if c.CatalogTimeout <= 0 {
		return errors.New("CATALOG_TIMEOUT must be positive")
	}
	if c.CatalogBaseURL == "" {
		return errors.New("CATALOG_BASE_URL is required")
	}
	return nil
}
