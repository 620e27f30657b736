// Package rtt implements the round-trip time estimator that drives
// retransmission timing for reliable lanes.
package rtt

import "time"

// DefaultSmoothed is the initial smoothed RTT used before any sample has
// been observed. DefaultVar is half of it (smoothed = 2*var = 333ms), a
// conservative starting point for an unknown link.
const (
	DefaultSmoothed = 333 * time.Millisecond
	DefaultVar      = DefaultSmoothed / 2
	minPTOFloor     = time.Millisecond
)

// Estimator tracks a smoothed RTT and its variance, in the tradition of the
// classic TCP estimator (Jacobson/Karels): each new sample nudges the
// smoothed value by 1/8th and the variance by 1/4, so a handful of
// consecutive outliers move the estimate but a single one barely does.
type Estimator struct {
	latest   time.Duration
	smoothed time.Duration
	variance time.Duration
	min      time.Duration
}

// New returns an Estimator seeded with an initial RTT. A zero initial
// defaults to DefaultSmoothed/DefaultVar.
func New(initial time.Duration) *Estimator {
	e := &Estimator{}
	if initial <= 0 {
		e.smoothed = DefaultSmoothed
		e.variance = DefaultVar
	} else {
		e.smoothed = initial
		e.variance = initial / 2
	}
	e.latest = e.smoothed
	e.min = e.smoothed
	return e
}

// Sample feeds a newly measured round-trip time into the estimator.
func (e *Estimator) Sample(r time.Duration) {
	e.latest = r
	if e.min == 0 || r < e.min {
		e.min = r
	}
	varSample := e.smoothed - r
	if varSample < 0 {
		varSample = -varSample
	}
	e.variance = (3*e.variance + varSample) / 4
	e.smoothed = (7*e.smoothed + r) / 8
}

// Smoothed returns the current smoothed RTT estimate.
func (e *Estimator) Smoothed() time.Duration { return e.smoothed }

// Variance returns the current RTT variance estimate.
func (e *Estimator) Variance() time.Duration { return e.variance }

// Latest returns the most recently sampled RTT.
func (e *Estimator) Latest() time.Duration { return e.latest }

// Min returns the smallest RTT sample observed.
func (e *Estimator) Min() time.Duration { return e.min }

// PTO returns the probe timeout: the interval after which an unacknowledged
// reliable fragment should be retransmitted.
func (e *Estimator) PTO() time.Duration {
	margin := 4 * e.variance
	if margin < minPTOFloor {
		margin = minPTOFloor
	}
	return e.smoothed + margin
}

// Conservative returns the larger of the smoothed and latest RTT, for
// callers that want to err toward patience rather than toward an aggressive
// retransmit.
func (e *Estimator) Conservative() time.Duration {
	if e.latest > e.smoothed {
		return e.latest
	}
	return e.smoothed
}
