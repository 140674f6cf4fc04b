package sim

import (
	"testing"
	"time"
)

func TestNewTokenBucketValidation(t *testing.T) {
	if _, err := NewTokenBucket(0, 1024); err == nil {
		t.Fatalf("expected error for zero rate")
	}
	if _, err := NewTokenBucket(1024, 0); err == nil {
		t.Fatalf("expected error for zero capacity")
	}
}

func TestTokenBucketStartsFull(t *testing.T) {
	b, err := NewTokenBucket(1000, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := b.Peek(); got != 5000 {
		t.Errorf("expected initial credit 5000, got %d", got)
	}
}

func TestTokenBucketConservation(t *testing.T) {
	b, err := NewTokenBucket(1000, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// With no elapsed time the sum of granted sizes cannot exceed the
	// initial credit.
	now := time.Now()
	granted := uint64(0)
	for i := 0; i < 10; i++ {
		if b.consumeAt(1000, now) {
			granted += 1000
		}
	}
	if granted != 5000 {
		t.Errorf("expected exactly 5000 bytes granted from a full 5000 bucket, got %d", granted)
	}
	if b.peekAt(now) != 0 {
		t.Errorf("expected empty bucket, got %d", b.peekAt(now))
	}
}

func TestTokenBucketDenialLeavesCredit(t *testing.T) {
	b, _ := NewTokenBucket(1000, 500)
	now := time.Now()

	if b.consumeAt(501, now) {
		t.Fatalf("expected consume beyond credit to be denied")
	}
	if got := b.peekAt(now); got != 500 {
		t.Errorf("expected credit unchanged at 500 after denial, got %d", got)
	}
}

func TestTokenBucketRefillCappedAtCapacity(t *testing.T) {
	b, _ := NewTokenBucket(1000, 2000)
	now := time.Now()

	if !b.consumeAt(2000, now) {
		t.Fatalf("expected full bucket to grant its capacity")
	}

	// 1 second refills 1000 bytes; 10 seconds still caps at capacity.
	if got := b.peekAt(now.Add(1 * time.Second)); got != 1000 {
		t.Errorf("expected 1000 bytes after 1s at 1000 B/s, got %d", got)
	}
	if got := b.peekAt(now.Add(11 * time.Second)); got != 2000 {
		t.Errorf("expected refill capped at capacity 2000, got %d", got)
	}
}

func TestTokenBucketNoDriftUnderRapidPolling(t *testing.T) {
	// 1000 B/s means one token every millisecond. Polling every 100µs adds
	// zero whole tokens per poll; the refill timestamp must not advance on
	// those empty refills or the credit would never accrue.
	b, _ := NewTokenBucket(1000, 2000)
	now := time.Now()
	if !b.consumeAt(2000, now) {
		t.Fatalf("expected initial consume to drain the bucket")
	}

	for i := 1; i <= 100; i++ {
		b.peekAt(now.Add(time.Duration(i) * 100 * time.Microsecond))
	}
	// 10ms elapsed in total: 10 tokens.
	if got := b.peekAt(now.Add(10 * time.Millisecond)); got != 10 {
		t.Errorf("expected 10 tokens after 10ms of rapid polling, got %d", got)
	}
}

func TestTokenBucketMonotoneCredit(t *testing.T) {
	b, _ := NewTokenBucket(500, 1000)
	now := time.Now()
	b.consumeAt(1000, now)

	prev := uint64(0)
	for i := 1; i <= 5; i++ {
		got := b.peekAt(now.Add(time.Duration(i) * 100 * time.Millisecond))
		if got < prev {
			t.Fatalf("credit decreased without a consume: %d -> %d", prev, got)
		}
		prev = got
	}
}

func TestTokenBucketAccessors(t *testing.T) {
	b, _ := NewTokenBucket(800*1024, 100*1024)
	if b.Rate() != 800*1024 {
		t.Errorf("expected rate 800KiB/s, got %d", b.Rate())
	}
	if b.Capacity() != 100*1024 {
		t.Errorf("expected capacity 100KiB, got %d", b.Capacity())
	}
}
