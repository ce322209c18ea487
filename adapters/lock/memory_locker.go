package lock

import (
	"context"
	"sync"

	"github.com/lunark-labs/drip/ports"
)

// MemoryLocker is an in-process keyed mutex, used in tests and single-node
// deployments.
type MemoryLocker struct {
	mu      sync.Mutex
	mutexes map[string]*sync.Mutex
}

// NewMemoryLocker creates an empty keyed mutex.
func NewMemoryLocker() ports.Locker {
	return &MemoryLocker{mutexes: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the key is held and returns the release func.
// Mutexes are kept for the life of the locker; the key space is the set of
// active account addresses, which stays small in tests.
func (l *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.mutexes[key]
	if !ok {
		m = &sync.Mutex{}
		l.mutexes[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
