package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "lock:poi:"

// releaseLua deletes the key only while it still carries our token so an
// expired lock re-acquired by another caller is left alone.
const releaseLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

// RedisConfig tunes RedisLocker.
type RedisConfig struct {
	KeyPrefix     string
	TTL           time.Duration
	Wait          time.Duration
	RetryInterval time.Duration
}

// RedisLocker coordinates booking writers across service replicas using
// SET NX PX. The TTL bounds how long a crashed holder can block a POI.
type RedisLocker struct {
	client  redis.Cmdable
	cfg     RedisConfig
	release *redis.Script
	logger  *zap.Logger
}

// NewRedisLocker constructs the locker, filling unset tunables with defaults.
func NewRedisLocker(client redis.Cmdable, logger *zap.Logger, cfg RedisConfig) *RedisLocker {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 3 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 20 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: client, cfg: cfg, release: redis.NewScript(releaseLua), logger: logger}
}

// Lock retries SET NX with a growing pause until it wins, cfg.Wait elapses
// or ctx is done.
func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	start := time.Now()
	full := r.cfg.KeyPrefix + key
	token := uuid.NewString()
	deadline := start.Add(r.cfg.Wait)

	for attempt := 1; ; attempt++ {
		ok, err := r.client.SetNX(ctx, full, token, r.cfg.TTL).Result()
		if err != nil {
			lockWait.WithLabelValues("redis", "error").Observe(time.Since(start).Seconds())
			return nil, fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			lockWait.WithLabelValues("redis", "acquired").Observe(time.Since(start).Seconds())
			return r.releaser(full, token), nil
		}
		if !time.Now().Before(deadline) {
			lockWait.WithLabelValues("redis", "timeout").Observe(time.Since(start).Seconds())
			return nil, fmt.Errorf("%w: %s", ErrTimeout, key)
		}
		pause := r.cfg.RetryInterval * time.Duration(attempt)
		if pause > 250*time.Millisecond {
			pause = 250 * time.Millisecond
		}
		select {
		case <-time.After(pause):
		case <-ctx.Done():
			lockWait.WithLabelValues("redis", "timeout").Observe(time.Since(start).Seconds())
			return nil, ctx.Err()
		}
	}
}

func (r *RedisLocker) releaser(key, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.release.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
			r.logger.Warn("release booking lock", zap.String("key", key), zap.Error(err))
		}
	}
}
