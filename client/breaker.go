package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// RefreshMaxAttempts is the number of refresh calls allowed per window.
	RefreshMaxAttempts = 3

	// RefreshCooldown is the window after which the attempt counter resets.
	RefreshCooldown = 30 * time.Second
)

// ErrRefreshExhausted is returned once the attempt budget for the current
// window is spent. Callers must stop retrying and re-authenticate.
var ErrRefreshExhausted = errors.New("session refresh attempts exhausted, re-authentication required")

// RefreshFunc performs one refresh call and returns the new session token.
type RefreshFunc func(ctx context.Context) (string, error)

// RefreshBreaker bounds retry storms around session refresh: at most
// RefreshMaxAttempts calls per RefreshCooldown window, with concurrent
// callers coalescing onto the in-flight call instead of issuing duplicates.
// The counter resets when the window elapses and immediately on success.
//
// State is owned by the breaker instance, not the package, so clients can be
// isolated and tests can inject a clock.
type RefreshBreaker struct {
	mu          sync.Mutex
	attempts    int
	windowStart time.Time

	group singleflight.Group
	now   func() time.Time
}

// NewRefreshBreaker creates a breaker with the wall clock.
func NewRefreshBreaker() *RefreshBreaker {
	return &RefreshBreaker{now: time.Now}
}

// WithClock overrides the breaker clock. Tests only.
func (b *RefreshBreaker) WithClock(now func() time.Time) *RefreshBreaker {
	b.now = now
	return b
}

// Do runs refresh under the breaker's rules. Callers arriving while a
// refresh is in flight share its result without consuming an attempt.
func (b *RefreshBreaker) Do(ctx context.Context, refresh RefreshFunc) (string, error) {
	if err := b.admit(); err != nil {
		return "", err
	}

	v, err, _ := b.group.Do("refresh", func() (interface{}, error) {
		b.recordAttempt()
		token, err := refresh(ctx)
		if err != nil {
			return "", err
		}
		b.reset()
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// admit checks the attempt budget, rolling the window forward when the
// cooldown has elapsed.
func (b *RefreshBreaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if b.windowStart.IsZero() || now.Sub(b.windowStart) >= RefreshCooldown {
		b.attempts = 0
		b.windowStart = now
	}
	if b.attempts >= RefreshMaxAttempts {
		return ErrRefreshExhausted
	}
	return nil
}

func (b *RefreshBreaker) recordAttempt() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts++
}

func (b *RefreshBreaker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts = 0
	b.windowStart = time.Time{}
}
