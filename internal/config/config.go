package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the error tracker server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Blob      BlobConfig
	NATS      NATSConfig
}

type ServerConfig struct {
	Port           int
	Env            string
	PublicBaseURL  string
	MaxUploadBytes int64
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	AuthCacheTTL time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type BlobConfig struct {
	Backend string
	Dir     string
	Bucket  string
}

// NATSConfig is optional unless the blob backend is nats. When URL is set,
// notifications are also published to the stream.
type NATSConfig struct {
	URL          string
	NotifyStream string
}

const (
	BlobBackendFS   = "fs"
	BlobBackendNATS = "nats"
)

var validBlobBackends = map[string]bool{
	BlobBackendFS:   true,
	BlobBackendNATS: true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           envInt("ERRTRACKER_PORT", 8080),
			Env:            envString("ERRTRACKER_ENV", "development"),
			PublicBaseURL:  strings.TrimRight(envString("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 10<<20)),
		},
		Database: loadDatabase(),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			AuthCacheTTL: envDuration("AUTH_CACHE_TTL", time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Blob: BlobConfig{
			Backend: envString("BLOB_BACKEND", BlobBackendFS),
			Dir:     envString("BLOB_DIR", "./data/images"),
			Bucket:  envString("BLOB_BUCKET", "error-images"),
		},
		NATS: NATSConfig{
			URL:          os.Getenv("NATS_URL"),
			NotifyStream: envString("NOTIFY_STREAM", "ERRORTRACKER"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the database section. Used by the CLI, which needs
// neither Redis nor blob storage.
func LoadDatabase() (*DatabaseConfig, error) {
	db := loadDatabase()
	if db.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return &db, nil
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		URL:             os.Getenv("DATABASE_URL"),
		MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !strings.HasPrefix(c.Server.PublicBaseURL, "http://") && !strings.HasPrefix(c.Server.PublicBaseURL, "https://") {
		return fmt.Errorf("PUBLIC_BASE_URL must start with http:// or https://, got %q", c.Server.PublicBaseURL)
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.Server.MaxUploadBytes)
	}

	if !validBlobBackends[c.Blob.Backend] {
		return fmt.Errorf("BLOB_BACKEND must be one of fs, nats; got %q", c.Blob.Backend)
	}
	if c.Blob.Backend == BlobBackendNATS && c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when BLOB_BACKEND is nats")
	}
	if c.Blob.Backend == BlobBackendFS && c.Blob.Dir == "" {
		return fmt.Errorf("BLOB_DIR is required when BLOB_BACKEND is fs")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
