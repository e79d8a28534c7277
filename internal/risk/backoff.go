package risk

import (
	"sync"
	"time"
)

const (
	backoffFloor = 15 * time.Second
	backoffCeil  = 5 * time.Minute
)

// backoff is the single shared rate-limit timer for the reasoning endpoint.
// Each 429 doubles the window (floor 15s, cap 5min); any success resets it.
type backoff struct {
	mu       sync.Mutex
	duration time.Duration
	until    time.Time
	now      func() time.Time
}

func newBackoff(now func() time.Time) *backoff {
	if now == nil {
		now = time.Now
	}
	return &backoff{now: now}
}

// blocked reports whether new calls must be refused, and for how long.
func (b *backoff) blocked() (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.until.Sub(b.now())
	if remaining <= 0 {
		return false, 0
	}
	return true, remaining
}

// onRateLimit doubles the backoff window and returns the new duration.
func (b *backoff) onRateLimit() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.duration == 0 {
		b.duration = backoffFloor
	} else {
		b.duration *= 2
		if b.duration > backoffCeil {
			b.duration = backoffCeil
		}
	}
	b.until = b.now().Add(b.duration)
	return b.duration
}

// onSuccess resets the backoff to zero.
func (b *backoff) onSuccess() {
	b.mu.Lock()
	b.duration = 0
	b.until = time.Time{}
	b.mu.Unlock()
}
