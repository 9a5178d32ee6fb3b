package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration, populated from environment variables.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes

	// Full-text index
	IndexPath string `env:"INDEX_PATH" envDefault:"data/index"` // empty means in-memory

	// Blob store
	BlobProvider   string `env:"BLOB_PROVIDER" envDefault:"fs"` // "fs" or "minio"
	BlobDir        string `env:"BLOB_DIR" envDefault:"data/blobs"`
	MinIOEndpoint  string `env:"MINIO_ENDPOINT"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY"`
	MinIOBucket    string `env:"MINIO_BUCKET" envDefault:"pdf-files"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`

	// Ingestion queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"inproc"` // "inproc" or "nats"
	QueueURL      string `env:"QUEUE_URL"`
	Workers       int    `env:"INGEST_WORKERS" envDefault:"4"`
	QueueDepth    int    `env:"INGEST_QUEUE_DEPTH" envDefault:"64"`

	// Lifecycle tracker
	StatusProvider string `env:"STATUS_PROVIDER" envDefault:"memory"` // "memory" or "postgres"
	DBURL          string `env:"DB_URL"`

	// Search cache
	CacheProvider string        `env:"CACHE_PROVIDER" envDefault:"noop"` // "noop" or "redis"
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
