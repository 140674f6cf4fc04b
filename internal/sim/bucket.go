package sim

import (
	"fmt"
	"sync"
	"time"
)

// TokenBucket meters bytes onto the link. Credit accrues at a fixed rate up to
// a cap; a packet is admitted only when its full size can be debited at once.
// The bucket never blocks: callers retry denied consumes on their own cadence.
type TokenBucket struct {
	mu         sync.Mutex
	rate       uint64 // bytes added per second
	capacity   uint64 // maximum credit in bytes
	tokens     uint64 // current credit in bytes
	lastRefill time.Time
}

// NewTokenBucket creates a bucket that starts full. rate and capacity are in
// bytes per second and bytes and must both be positive.
func NewTokenBucket(rate, capacity uint64) (*TokenBucket, error) {
	if rate == 0 {
		return nil, fmt.Errorf("token bucket rate must be positive")
	}
	if capacity == 0 {
		return nil, fmt.Errorf("token bucket capacity must be positive")
	}
	return &TokenBucket{
		rate:       rate,
		capacity:   capacity,
		tokens:     capacity,
		lastRefill: time.Now(),
	}, nil
}

// Consume tries to debit n bytes of credit, refilling for elapsed time first.
// It reports whether the debit was granted; on denial the credit is unchanged.
func (b *TokenBucket) Consume(n uint64) bool {
	return b.consumeAt(n, time.Now())
}

func (b *TokenBucket) consumeAt(n uint64, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(now)
	if b.tokens >= n {
		b.tokens -= n
		return true
	}
	return false
}

// Peek returns the as-of-now credit, for observability only. Admission is
// gated by Consume alone.
func (b *TokenBucket) Peek() uint64 {
	return b.peekAt(time.Now())
}

func (b *TokenBucket) peekAt(now time.Time) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(now)
	return b.tokens
}

// Rate returns the refill rate in bytes per second
func (b *TokenBucket) Rate() uint64 { return b.rate }

// Capacity returns the maximum credit in bytes
func (b *TokenBucket) Capacity() uint64 { return b.capacity }

// refillLocked adds rate*elapsed credit capped at capacity. The refill
// timestamp only advances when credit was actually added, so sub-token
// elapsed intervals are not lost under rapid polling.
func (b *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	add := b.rate * uint64(elapsed.Microseconds()) / 1e6
	if add == 0 {
		return
	}
	b.tokens += add
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}
