package websocket

import (
	"math/rand/v2"
	"time"
)

// DefaultBackoff provides conservative reconnect defaults.
func DefaultBackoff() Backoff {
	return Backoff{
		Min:    250 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2.0,
		Jitter: 0.2,
	}
}

// Next returns the backoff duration for the given attempt (1-based).
func (b Backoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	floor := b.Min
	if floor <= 0 {
		floor = 100 * time.Millisecond
	}
	ceil := b.Max
	if ceil <= 0 {
		ceil = 5 * time.Second
	}
	factor := b.Factor
	if factor <= 1 {
		factor = 2.0
	}

	wait := floor
	for i := 1; i < attempt && wait < ceil; i++ {
		wait = min(time.Duration(float64(wait)*factor), ceil)
	}

	jitter := min(b.Jitter, 1)
	if jitter <= 0 {
		return wait
	}
	delta := float64(wait) * jitter
	return wait - time.Duration(delta) + time.Duration(rand.Float64()*2*delta)
}
