package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RunLock guards one generation run per owner across worker instances. The
// lock carries a TTL so a crashed worker cannot park an owner forever; the
// running worker refreshes it between pages.
type RunLock interface {
	// Acquire takes the owner's lock. Returns false when another run holds it.
	Acquire(ctx context.Context, ownerID string) (bool, error)
	// Refresh extends the TTL of a held lock.
	Refresh(ctx context.Context, ownerID string) error
	// Release drops the lock. Safe to call on a lock that already expired.
	Release(ctx context.Context, ownerID string) error
}

type redisRunLock struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRedisRunLock builds a Redis-backed run lock.
func NewRedisRunLock(client *redis.Client, ttl time.Duration, logger *zap.Logger) RunLock {
	return &redisRunLock{
		client: client,
		logger: logger.Named("RedisRunLock"),
		ttl:    ttl,
	}
}

func lockKey(ownerID string) string {
	return fmt.Sprintf("storybook:runlock:%s", ownerID)
}

func (l *redisRunLock) Acquire(ctx context.Context, ownerID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(ownerID), "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock for owner %s: %w", ownerID, err)
	}
	return ok, nil
}

func (l *redisRunLock) Refresh(ctx context.Context, ownerID string) error {
	if err := l.client.Expire(ctx, lockKey(ownerID), l.ttl).Err(); err != nil {
		// Losing a refresh is survivable; the worst case is a second run
		// starting after the TTL, which the per-page upsert tolerates.
		l.logger.Warn("Failed to refresh run lock", zap.String("ownerId", ownerID), zap.Error(err))
		return err
	}
	return nil
}

func (l *redisRunLock) Release(ctx context.Context, ownerID string) error {
	if err := l.client.Del(ctx, lockKey(ownerID)).Err(); err != nil {
		l.logger.Warn("Failed to release run lock", zap.String("ownerId", ownerID), zap.Error(err))
		return err
	}
	return nil
}
