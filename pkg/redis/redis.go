package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

var ErrLockHeld = errors.New("lock is held by another process")

// JobLocker serializes background jobs across processes with redislock.
type JobLocker struct {
	locker *redislock.Client
	ttl    time.Duration
}

// NewJobLocker returns a locker on the shared client, or nil when Redis is not initialized.
func NewJobLocker(ttl time.Duration) *JobLocker {
	if client == nil {
		return nil
	}
	return &JobLocker{
		locker: redislock.New(client),
		ttl:    ttl,
	}
}

// Acquire obtains key without retrying. The returned release func is safe to call once.
func (l *JobLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := l.locker.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		logger.Warn("Could not obtain job lock", map[string]interface{}{
			"key": key,
		})
		return nil, ErrLockHeld
	}
	if err != nil {
		logger.Error("Error obtaining job lock", err, map[string]interface{}{
			"key": key,
		})
		return nil, err
	}

	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn("Failed to release job lock", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}, nil
}
