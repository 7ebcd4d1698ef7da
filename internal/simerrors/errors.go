// Package simerrors defines the four error kinds from the error-handling
// design: InvalidScenario, InvalidDestination, ClockFault, and Cancelled.
// Callers distinguish them with errors.Is against these sentinels, and
// package-specific detail is attached with fmt.Errorf("%w: ...", ...).
package simerrors

import "errors"

var (
	// ErrInvalidScenario marks a malformed scenario row: wrong column
	// count, or NaN/Inf in a numeric field. Recovery: abort the affected
	// scenario only; other scenarios proceed.
	ErrInvalidScenario = errors.New("invalid scenario")

	// ErrInvalidDestination marks a destination coincident with the
	// current position. Recovery: reject locally, continue.
	ErrInvalidDestination = errors.New("invalid destination")

	// ErrClockFault marks a monotonic clock that ran backward or skewed
	// beyond one tick. Recovery: reset the tick origin, record a
	// skipped-ticks counter, continue.
	ErrClockFault = errors.New("clock fault")

	// ErrCancelled marks a requested stop. Not a failure — graceful
	// shutdown.
	ErrCancelled = errors.New("cancelled")
)
