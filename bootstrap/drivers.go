package bootstrap

import (
	"context"
	"fmt"
	"time"

	"place-indexer/config"
	"place-indexer/driver"
	"place-indexer/gateway"
	"place-indexer/logger"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
)

// newStartupBackoff is the retry policy for dependencies that may come up
// after this process.
func newStartupBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 15 * time.Second
	bo.Multiplier = 2
	return bo
}

// retryStartup runs op until it succeeds, ctx ends or config.StartupTimeout
// elapses.
func retryStartup[T any](ctx context.Context, name string, op func(context.Context) (T, error)) (T, error) {
	attempt := 0
	return backoff.Retry(ctx,
		func() (T, error) {
			attempt++
			return op(ctx)
		},
		backoff.WithBackOff(newStartupBackoff()),
		backoff.WithMaxElapsedTime(config.StartupTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Logger.Warn("dependency not ready, retrying",
				"dependency", name,
				"attempt", attempt,
				"retry_in", next,
				"err", err)
		}),
	)
}

// initDatabase opens the pgx pool.
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	logger.Logger.Info("Connecting to database", "host", cfg.Host, "dbname", cfg.Name)

	pool, err := retryStartup(ctx, "postgres", func(ctx context.Context) (*pgxpool.Pool, error) {
		return driver.OpenPool(ctx, cfg.ConnectionString(), cfg.MaxConns)
	})
	if err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}

	logger.Logger.Info("Connected to database successfully")
	return pool, nil
}

// initMeilisearchClient creates the client and waits for a healthy server.
func initMeilisearchClient(ctx context.Context, cfg config.MeilisearchConfig) (meilisearch.ServiceManager, error) {
	logger.Logger.Info("Connecting to Meilisearch", "host", cfg.Host)

	client := meilisearch.New(cfg.Host, meilisearch.WithAPIKey(cfg.APIKey))
	_, err := retryStartup(ctx, "meilisearch", func(context.Context) (*meilisearch.Health, error) {
		return client.Health()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Meilisearch: %w", err)
	}

	logger.Logger.Info("Connected to Meilisearch successfully")
	return client, nil
}

// initSyncLocker returns the Redis lock when REDIS_LOCK_URL is set and the
// in-process lock otherwise. The returned close func is never nil.
func initSyncLocker(ctx context.Context, cfg config.RedisConfig) (gateway.Locker, func(), error) {
	if cfg.LockURL == "" {
		logger.Logger.Info("REDIS_LOCK_URL not set, full sync lock is process-local")
		return driver.NewLocalLock(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.LockURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_LOCK_URL: %w", err)
	}
	client := redis.NewClient(opts)

	_, err = retryStartup(ctx, "redis", func(ctx context.Context) (string, error) {
		return client.Ping(ctx).Result()
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Logger.Info("Full sync lock backed by Redis", "key", cfg.LockKey, "ttl", cfg.LockTTL)
	return driver.NewRedisLock(client, cfg.LockKey, cfg.LockTTL), func() { _ = client.Close() }, nil
}
