package retry

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Backoff yields Base*2^n for the n-th retry, spread by ±Jitter and never
// shorter than Min. A Backoff belongs to a single FetchWithRetry call.
type Backoff struct {
	Base   time.Duration
	Min    time.Duration
	Jitter float64
	// Rand returns values in [0, 1).
	Rand func() float64

	attempt int
}

var _ backoff.BackOff = (*Backoff)(nil)

func (b *Backoff) NextBackOff() time.Duration {
	d := float64(b.Base) * math.Pow(2, float64(b.attempt))
	b.attempt++

	if b.Jitter > 0 && b.Rand != nil {
		d += d * b.Jitter * (2*b.Rand() - 1)
	}
	if d < float64(b.Min) {
		d = float64(b.Min)
	}
	return time.Duration(d)
}

func (b *Backoff) Reset() {
	b.attempt = 0
}
