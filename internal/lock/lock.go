// Package lock guards the booking critical section per slot. A slot key is
// the "doctorID:date:time" tuple being booked.
package lock

import (
	"context"
	"errors"
	"sync"
)

var ErrNotAcquired = errors.New("slot lock not acquired")

// Locker runs fn while holding an exclusive lock on key. If the lock is
// already held, ErrNotAcquired is returned without waiting.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type localLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal returns an in-process Locker for single-node deployments backed by
// the in-memory store. It mirrors the non-blocking semantics of the Redis
// locker: a contended key fails immediately.
func NewLocal() Locker {
	return &localLocker{held: make(map[string]struct{})}
}

func (l *localLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if _, busy := l.held[key]; busy {
		l.mu.Unlock()
		return ErrNotAcquired
	}
	l.held[key] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()

	return fn(ctx)
}
