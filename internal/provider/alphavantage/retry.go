package alphavantage

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy controls how many attempts a throttled request gets and how long
// to pause between them. Only upstream throttling is retried.
type RetryPolicy struct {
	// Attempts is the total number of tries, first call included.
	Attempts int
	// Backoff is the pause before the first retry; it doubles on each further retry.
	Backoff time.Duration
	// MaxBackoff caps the doubled pause. Zero means no cap.
	MaxBackoff time.Duration
	// Jitter adds up to this fraction of the pause at random, in [0, 1].
	Jitter float64
}

// DefaultRetryPolicy retries once, immediately, with the next key.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 2}
}

func (p RetryPolicy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// delay returns the pause after the given failed attempt (1-based).
func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	d := p.Backoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			d = p.MaxBackoff
			break
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	if j := p.Jitter; j > 0 {
		if j > 1 {
			j = 1
		}
		d += time.Duration(rand.Float64() * j * float64(d))
	}
	return d
}

func (p RetryPolicy) wait(ctx context.Context, attempt int) error {
	d := p.delay(attempt)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
