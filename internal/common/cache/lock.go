package cache

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/dumeirei/edu-backoffice/internal/common/errors"
)

// Locker 临界区
type Locker interface {
	WithLock(ctx context.Context, key string, fn func() error) error
}

// RedisLocker 基于 redislock 的临界区
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

// NewRedisLocker 创建 Redis 锁
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 20),
	}
}

// WithLock 持锁执行 fn，拿不到锁返回 ErrLockNotObtained
func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func() error) error {
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if err == redislock.ErrNotObtained {
		return errors.ErrLockNotObtained
	}
	if err != nil {
		return errors.ErrCacheError.WithError(err)
	}
	defer func() {
		_ = lock.Release(context.Background())
	}()
	return fn()
}

// NoopLocker 未启用 Redis 时使用，依赖数据库唯一约束兜底
type NoopLocker struct{}

// WithLock 直接执行 fn
func (NoopLocker) WithLock(_ context.Context, _ string, fn func() error) error {
	return fn()
}
