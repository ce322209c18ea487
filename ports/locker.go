package ports

import "context"

// Locker provides per-key mutual exclusion. Claim operations acquire the
// account address before reading state, so "at most one pending claim per
// account" holds under concurrent requests.
type Locker interface {
	// Acquire blocks until the key is held and returns the release func.
	Acquire(ctx context.Context, key string) (func(), error)
}
