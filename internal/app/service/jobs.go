package service

import (
	"context"
	"errors"

	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/redis"
)

const (
	JobSync    = "sync"
	JobRollup  = "rollup"
	JobArchive = "archive"

	LockKeySync   = "analytics:sync"
	LockKeyRollup = "analytics:rollup"
)

const (
	EventSyncCompleted   = "sync.completed"
	EventRollupCompleted = "rollup.completed"
	EventReportArchived  = "report.archived"
)

var ErrJobInProgress = errors.New("job already running")

// JobLocker serializes jobs across processes; *redis.JobLocker implements it.
type JobLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// EventPublisher pushes pipeline events to live subscribers; *websocket.Hub implements it.
type EventPublisher interface {
	Publish(topic, eventType string, payload interface{}) error
}

// acquire returns a no-op release when no locker is configured.
func acquire(ctx context.Context, locker JobLocker, key string) (func(), error) {
	if locker == nil {
		return func() {}, nil
	}
	release, err := locker.Acquire(ctx, key)
	if errors.Is(err, redis.ErrLockHeld) {
		return nil, ErrJobInProgress
	}
	if err != nil {
		return nil, err
	}
	return release, nil
}

func publish(publisher EventPublisher, topic, eventType string, payload interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(topic, eventType, payload); err != nil {
		logger.Warn("Failed to publish analytics event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}
