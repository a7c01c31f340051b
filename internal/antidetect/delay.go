package antidetect

import (
	"math/rand"
	"time"
)

// delayState is the adaptive inter-request delay window. Like the pool it
// carries no lock; the Manager serializes all access.
type delayState struct {
	min, max           time.Duration // current window
	floorMin, floorMax time.Duration // configured base window, the shrink target
	ceiling            time.Duration // hard upper clamp for widening
	dynamic            bool

	consecutiveFailures int
	lastRequest         time.Time // projected wake time of the previous Wait
}

// narrowStep is how much each bound shrinks per success.
const narrowStep = 500 * time.Millisecond

func newDelayState(min, max, ceiling time.Duration, dynamic bool) *delayState {
	return &delayState{
		min:      min,
		max:      max,
		floorMin: min,
		floorMax: max,
		ceiling:  ceiling,
		dynamic:  dynamic,
	}
}

// nextSleep draws a delay uniformly from the current window and returns how
// long the caller must still sleep given the time already elapsed since the
// previous request. lastRequest advances to the projected wake time so
// back-to-back callers stay spaced even when processing between calls is
// slow or concurrent.
func (d *delayState) nextSleep(now time.Time) time.Duration {
	delay := d.min
	if span := d.max - d.min; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}

	remaining := delay - now.Sub(d.lastRequest)
	if remaining < 0 {
		remaining = 0
	}
	d.lastRequest = now.Add(remaining)
	return remaining
}

// onSuccess shrinks the window a fixed step toward the configured floor.
func (d *delayState) onSuccess() {
	d.consecutiveFailures = 0
	if !d.dynamic {
		return
	}
	if d.min > d.floorMin {
		d.min = maxDur(d.floorMin, d.min-narrowStep)
	}
	if d.max > d.floorMax {
		d.max = maxDur(d.floorMax, d.max-narrowStep)
	}
}

// onFailure widens the window geometrically, 2x for rate-limit class
// responses, clamped at the ceiling.
func (d *delayState) onFailure(statusCode int) {
	d.consecutiveFailures++
	if !d.dynamic {
		return
	}

	multiplier := 1.5
	if statusCode == 429 || statusCode == 503 {
		multiplier = 2.0
	}

	d.min = minDur(time.Duration(float64(d.min)*multiplier), d.ceiling)
	d.max = minDur(time.Duration(float64(d.max)*multiplier), d.ceiling)
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func maxDur(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
