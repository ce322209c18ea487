package lock

import (
	"context"
	"fmt"

	"github.com/go-redsync/redsync/v4"

	"github.com/lunark-labs/drip/ports"
)

// RedsyncLocker provides per-account mutual exclusion across instances via
// Redis distributed mutexes.
type RedsyncLocker struct {
	rs     *redsync.Redsync
	prefix string
}

// NewRedsyncLocker creates a redsync-backed locker.
func NewRedsyncLocker(rs *redsync.Redsync) ports.Locker {
	return &RedsyncLocker{
		rs:     rs,
		prefix: "drip:lock:",
	}
}

// Acquire blocks until the distributed mutex for the key is held.
func (l *RedsyncLocker) Acquire(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(l.prefix + key)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to acquire lock for %s: %w", key, err)
	}

	release := func() {
		// Unlock failure means the mutex will expire on its own TTL.
		//nolint:errcheck
		mutex.UnlockContext(context.Background())
	}
	return release, nil
}
