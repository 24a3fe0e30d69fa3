// Package retry computes backoff delays for failed sync tasks.
package retry

import (
	"time"

	"shelfsync/internal/services"
)

// Policy derives the next attempt delay from an error and the attempt count.
// It never sleeps; callers persist the due time and let the queue hold the
// task until then.
type Policy struct {
	base    time.Duration
	ceiling time.Duration
	margin  time.Duration
}

// NewPolicy builds a Policy. Zero values fall back to sane defaults so a
// partially configured policy still behaves.
func NewPolicy(base, ceiling, margin time.Duration) Policy {
	if base <= 0 {
		base = 30 * time.Second
	}
	if ceiling < base {
		ceiling = base
	}
	if margin < 0 {
		margin = 0
	}
	return Policy{base: base, ceiling: ceiling, margin: margin}
}

// NextDelay returns how long to wait before the given retry attempt.
//
// When the error carries a server-mandated retry-after, that wait plus the
// configured margin wins regardless of the attempt count; honoring the
// server's figure keeps a throttled client from re-triggering the limit.
// Otherwise the delay doubles per attempt from the base, capped at the
// ceiling. retryCount is the number of attempts already consumed.
func (p Policy) NextDelay(err error, retryCount int) time.Duration {
	if wait, ok := services.RetryAfter(err); ok {
		return wait + p.margin
	}

	delay := p.base
	for i := 0; i < retryCount; i++ {
		if delay >= p.ceiling {
			return p.ceiling
		}
		delay *= 2
	}
	if delay > p.ceiling {
		delay = p.ceiling
	}
	return delay
}
