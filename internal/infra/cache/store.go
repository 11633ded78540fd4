package cache

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps backend failures so callers can fail closed.
var ErrStoreUnavailable = errors.New("rate store unavailable")

// Bucket is one fixed-window counter.
type Bucket struct {
	Count   int64
	ResetAt time.Time
}

// Expired reports whether the window of b has ended at now. The window
// still includes ResetAt itself. A bucket whose window was never started is
// live.
func (b Bucket) Expired(now time.Time) bool {
	return !b.ResetAt.IsZero() && now.After(b.ResetAt)
}

// RateStore holds fixed-window counters keyed by client. Incr creates the
// bucket on first use; Expire starts its window.
type RateStore interface {
	// Get returns the bucket for key, or false when there is none.
	Get(ctx context.Context, key string) (Bucket, bool, error)
	// Incr adds one to the counter and returns the updated bucket. A key
	// without a live window starts over at 1.
	Incr(ctx context.Context, key string) (Bucket, error)
	// Expire sets the window of key to end after ttl.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
