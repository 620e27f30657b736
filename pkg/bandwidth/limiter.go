// Package bandwidth implements the per-lane token-bucket bandwidth cap the
// scheduler consults before packing a fragment onto the wire.
package bandwidth

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a named token bucket over bytes per second: refill proportional
// to elapsed time, clamped at a burst capacity. It is a thin wrapper over
// rate.Limiter so callers reason about "lane budget" rather than a generic
// rate limiter, and so Remaining() can be inspected directly the way the
// per-lane sender state in the spec calls for.
type Limiter struct {
	rl       *rate.Limiter
	capacity int
}

// New creates a Limiter with the given sustained rate and burst capacity,
// both in bytes. A capacity of 0 disables the cap entirely (always allow).
func New(bytesPerSec int, capacity int) *Limiter {
	if capacity <= 0 {
		return &Limiter{rl: rate.NewLimiter(rate.Inf, 0), capacity: 0}
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(bytesPerSec), capacity), capacity: capacity}
}

// Unlimited returns a Limiter that never throttles, for lanes configured
// with no bandwidth cap.
func Unlimited() *Limiter {
	return &Limiter{rl: rate.NewLimiter(rate.Inf, 0), capacity: 0}
}

// AllowN reports whether n bytes may be spent at time now, and if so
// debits them from the bucket. This is the single admission test §4.7's
// scheduler uses to decide whether a lane still has budget for a candidate
// frame in the current flush.
func (l *Limiter) AllowN(now time.Time, n int) bool {
	if l.capacity == 0 {
		return true
	}
	return l.rl.AllowN(now, n)
}

// Remaining reports whether at least n bytes are currently available,
// without debiting the bucket. rate.Limiter does not expose its token
// count directly, so this is implemented as a reservation that is
// cancelled immediately: cancelling returns the tokens it borrowed, which
// is side-effect-free for any well-behaved caller that only uses Remaining
// to decide whether to call AllowN next.
func (l *Limiter) Remaining(now time.Time, n int) bool {
	if l.capacity == 0 {
		return true
	}
	res := l.rl.ReserveN(now, n)
	res.CancelAt(now)
	return res.OK() && res.DelayFrom(now) == 0
}

// Capacity returns the configured burst capacity in bytes.
func (l *Limiter) Capacity() int { return l.capacity }
