// Package cache Redis 模块单元测试
package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/edu-backoffice/internal/common/config"
	"github.com/dumeirei/edu-backoffice/internal/common/errors"
)

// setupMiniRedis 创建 miniredis 测试实例
func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestInit_Success(t *testing.T) {
	s := setupMiniRedis(t)

	cfg := &config.RedisConfig{
		Host:         s.Host(),
		Port:         s.Server().Addr().Port,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5,
		ReadTimeout:  3,
		WriteTimeout: 3,
	}

	client, err := Init(cfg)
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, client, GetClient())
	t.Cleanup(func() {
		_ = Close()
		rdb = nil
	})
}

func TestInit_ConnectionFailed(t *testing.T) {
	cfg := &config.RedisConfig{
		Host:        "127.0.0.1",
		Port:        1,
		DialTimeout: 1,
	}
	_, err := Init(cfg)
	assert.Error(t, err)
	rdb = nil
}

func TestBuildKey(t *testing.T) {
	assert.Equal(t, "lock:trial:customer:42", BuildKey(KeyPrefixTrialGuard, "42"))
	assert.Equal(t, "lock:a:b", BuildKey(KeyPrefixLock, "a", "b"))
	assert.Equal(t, "lock", BuildKey(KeyPrefixLock))
}

func TestRedisLocker_SerializesCriticalSection(t *testing.T) {
	s := setupMiniRedis(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client, time.Second)
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(ctx, BuildKey(KeyPrefixTrialGuard, "1"), func() error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestRedisLocker_PropagatesFnError(t *testing.T) {
	s := setupMiniRedis(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client, time.Second)
	err := locker.WithLock(context.Background(), "lock:x", func() error {
		return errors.ErrTrialAlreadyExists
	})
	assert.Same(t, errors.ErrTrialAlreadyExists, err)

	// 锁已释放
	assert.False(t, s.Exists("lock:x"))
}

func TestNoopLocker(t *testing.T) {
	called := false
	err := NoopLocker{}.WithLock(context.Background(), "k", func() error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}
