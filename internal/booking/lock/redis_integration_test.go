package lock_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/lock"
)

func startRedis(t *testing.T, ctx context.Context) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("redis container skipped in -short mode")
	}
	container, err := rediscontainer.Run(ctx, "redis:7",
		testcontainers.WithWaitStrategy(wait.ForLog("Ready to accept connections")))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})
	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: strings.TrimPrefix(endpoint, "redis://")})
	require.NoError(t, client.Ping(ctx).Err())
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestRedisLockerContention(t *testing.T) {
	ctx := context.Background()
	client := startRedis(t, ctx)
	locker := lock.NewRedisLocker(client, nil, lock.RedisConfig{TTL: 2 * time.Second, Wait: 5 * time.Second, RetryInterval: 5 * time.Millisecond})

	var inside, maxInside, acquired int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(ctx, "poi-sagrada")
			if err != nil {
				t.Error(err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			atomic.AddInt32(&acquired, 1)
			release()
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, maxInside)
	require.EqualValues(t, 10, acquired)
}
