// Package clock provides the monotonic time source injected into every
// loop in this module. Production code runs against the real wall clock;
// tests run against a mock that can be fast-forwarded deterministically,
// so that a 60-second scenario doesn't cost sixty seconds of wall time.
package clock

import (
	"github.com/benbjohnson/clock"
)

// Clock is the monotonic time source and sleep primitive every loop reads
// instead of calling time.Now/time.Sleep/time.NewTicker directly.
type Clock = clock.Clock

// Mock is a controllable clock for deterministic tests.
type Mock = clock.Mock

// New returns the real wall-clock implementation.
func New() Clock {
	return clock.New()
}

// NewMock returns a mock clock parked at the Unix epoch; advance it with
// Add/Set from test code.
func NewMock() *Mock {
	return clock.NewMock()
}

// Ticker mirrors time.Ticker but is sourced from an injected Clock.
type Ticker = clock.Ticker

// Timer mirrors time.Timer but is sourced from an injected Clock.
type Timer = clock.Timer
