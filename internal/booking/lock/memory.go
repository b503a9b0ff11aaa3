// Package lock provides the per-POI mutual exclusion used around the booking
// check-then-insert sequence.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrTimeout is returned when a lock could not be acquired in time.
var ErrTimeout = errors.New("lock wait timeout")

var lockWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "booking_lock_wait_seconds",
	Help:    "Time spent waiting for a per-POI booking lock.",
	Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
}, []string{"backend", "result"})

type keyLock struct {
	sem  chan struct{}
	refs int
}

// MemoryLocker serializes callers per key inside a single process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	wait  time.Duration
}

// NewMemoryLocker constructs an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyLock)}
}

// WithWait bounds how long Lock waits for a held key. Zero waits until ctx
// is done.
func (m *MemoryLocker) WithWait(wait time.Duration) *MemoryLocker {
	m.wait = wait
	return m
}

// Lock blocks until key is free, the configured wait elapses or ctx is done.
func (m *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	start := time.Now()
	var expired <-chan time.Time
	if m.wait > 0 {
		timer := time.NewTimer(m.wait)
		defer timer.Stop()
		expired = timer.C
	}
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-expired:
		m.unref(key, l)
		lockWait.WithLabelValues("memory", "timeout").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %s", ErrTimeout, key)
	case <-ctx.Done():
		m.unref(key, l)
		lockWait.WithLabelValues("memory", "timeout").Observe(time.Since(start).Seconds())
		return nil, ctx.Err()
	}
	lockWait.WithLabelValues("memory", "acquired").Observe(time.Since(start).Seconds())

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			m.unref(key, l)
		})
	}, nil
}

func (m *MemoryLocker) unref(key string, l *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

// Held returns the number of keys currently tracked; used by tests.
func (m *MemoryLocker) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
