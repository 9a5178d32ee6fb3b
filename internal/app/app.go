// Package app wires runtime dependencies from configuration.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"pdf-search/internal/blob"
	"pdf-search/internal/cache"
	"pdf-search/internal/config"
	"pdf-search/internal/extract"
	"pdf-search/internal/index"
	"pdf-search/internal/logger"
	"pdf-search/internal/status"
	"pdf-search/internal/task"
)

// Deps bundles common runtime dependencies for the server.
type Deps struct {
	Config    config.Config
	Log       *slog.Logger
	Index     index.Store
	Blobs     blob.Store
	Extractor extract.Extractor
	Queue     task.Queue
	Status    status.Tracker
	Cache     cache.Cache
}

// Build loads env, config, and shared components.
func Build() (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	// The index is opened later: main retries EnsureReady with backoff.
	idx := index.NewBleve(log, cfg.IndexPath)

	blobs, err := buildBlobs(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize blob store: %w", err)
	}
	q, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	tracker, err := buildTracker(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize status tracker: %w", err)
	}
	c, err := buildCache(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize cache: %w", err)
	}
	return Deps{
		Config:    cfg,
		Log:       log,
		Index:     idx,
		Blobs:     blobs,
		Extractor: extract.Safe(extract.NewPDF()),
		Queue:     q,
		Status:    tracker,
		Cache:     c,
	}, nil
}

// Close releases every dependency that holds a connection or file handle.
func (d Deps) Close() {
	if err := d.Index.Close(); err != nil {
		d.Log.Warn("failed to close index", "err", err)
	}
	if err := d.Blobs.Close(); err != nil {
		d.Log.Warn("failed to close blob store", "err", err)
	}
	if err := d.Status.Close(); err != nil {
		d.Log.Warn("failed to close status tracker", "err", err)
	}
	if err := d.Cache.Close(); err != nil {
		d.Log.Warn("failed to close cache", "err", err)
	}
}

func buildBlobs(cfg config.Config, log *slog.Logger) (blob.Store, error) {
	switch cfg.BlobProvider {
	case "fs":
		fs, err := blob.NewFS(cfg.BlobDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize filesystem blob store: %w", err)
		}
		log.Info("using filesystem blob store", "dir", cfg.BlobDir)
		return fs, nil
	case "minio":
		if cfg.MinIOEndpoint == "" {
			return nil, fmt.Errorf("MINIO_ENDPOINT is required when BLOB_PROVIDER=minio")
		}
		m, err := blob.NewMinIO(log, blob.MinIOOptions{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MinIO: %w", err)
		}
		log.Info("using MinIO blob store", "endpoint", cfg.MinIOEndpoint, "bucket", cfg.MinIOBucket)
		return m, nil
	default:
		return nil, fmt.Errorf("invalid BLOB_PROVIDER: %s (valid options: fs, minio)", cfg.BlobProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (task.Queue, error) {
	switch cfg.QueueProvider {
	case "inproc":
		log.Info("using in-process task queue", "depth", cfg.QueueDepth)
		return task.NewInProc(log, cfg.QueueDepth), nil
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return task.NewNATS(log, nc), nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: inproc, nats)", cfg.QueueProvider)
	}
}

func buildTracker(cfg config.Config, log *slog.Logger) (status.Tracker, error) {
	switch cfg.StatusProvider {
	case "memory":
		log.Info("using in-memory status tracker")
		return status.NewMemory(), nil
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STATUS_PROVIDER=postgres")
		}
		db, err := status.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres status tracker")
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STATUS_PROVIDER: %s (valid options: memory, postgres)", cfg.StatusProvider)
	}
}

func buildCache(cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	switch cfg.CacheProvider {
	case "noop":
		return cache.NewNoOpCache(), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when CACHE_PROVIDER=redis")
		}
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("using Redis search cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		return c, nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: noop, redis)", cfg.CacheProvider)
	}
}
