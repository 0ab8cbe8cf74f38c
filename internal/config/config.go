package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port        string
	StoreDriver string

	PostgresDSN string
	SQLitePath  string
	MongoURI    string
	MongoDB     string

	RedisAddr     string
	RedisPassword string
	BookCacheTTL  time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	CORSOrigins []string
	LogLevel    string
	LogFormat   string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	ttl, err := time.ParseDuration(getenv("BOOK_CACHE_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOK_CACHE_TTL: %w", err)
	}

	return &Config{
		Port:           getenv("PORT", "8080"),
		StoreDriver:    getenv("STORE_DRIVER", DriverSQLite),
		PostgresDSN:    getenv("POSTGRES_DSN", ""),
		SQLitePath:     getenv("SQLITE_PATH", "./data/bookshelf.db"),
		MongoURI:       getenv("MONGO_URI", ""),
		MongoDB:        getenv("MONGO_DB", "bookshelf"),
		RedisAddr:      getenv("REDIS_ADDR", ""),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		BookCacheTTL:   ttl,
		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "book-covers"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",
		CORSOrigins:    splitList(getenv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "pretty"),
	}, nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres driver")
		}
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the postgres driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.BookCacheTTL <= 0 {
		return errors.New("BOOK_CACHE_TTL must be positive")
	}
	return nil
}

// CoversEnabled reports whether a MinIO endpoint is configured.
func (c *Config) CoversEnabled() bool {
	return c.MinioEndpoint != ""
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
