package clock

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Fault describes a single detected clock anomaly: the monotonic source
// either ran backward or skewed by more than one expected tick period.
type Fault struct {
	Detected time.Time
	Expected time.Time
	Skew     time.Duration
}

// Watchdog polls a Clock at the expected tick period and flags the
// ClockFault condition from the error-handling design: a monotonic clock
// that is non-monotonic or skews beyond one tick. On a fault it resets its
// own notion of the tick origin and records a skipped-ticks counter rather
// than propagating an error — the run continues.
type Watchdog struct {
	mu sync.Mutex

	clk      Clock
	period   time.Duration
	origin   time.Time
	lastSeen time.Time

	skippedTicks uint64
	faults       []Fault

	logger *logrus.Logger
}

// NewWatchdog creates a watchdog for the given clock and expected tick
// period. Call Poll once per tick from the owning loop.
func NewWatchdog(clk Clock, period time.Duration, logger *logrus.Logger) *Watchdog {
	now := clk.Now()
	return &Watchdog{
		clk:      clk,
		period:   period,
		origin:   now,
		lastSeen: now,
		logger:   logger,
	}
}

// Poll checks the clock against the expected tick origin. Call it at the
// top of every tick. Returns true if a fault was detected this call.
func (w *Watchdog) Poll() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clk.Now()
	skew := now.Sub(w.lastSeen) - w.period

	faulted := skew < -w.period || skew > w.period
	if faulted {
		w.skippedTicks++
		w.faults = append(w.faults, Fault{Detected: now, Expected: w.lastSeen.Add(w.period), Skew: skew})
		w.origin = now
		if w.logger != nil {
			w.logger.WithFields(logrus.Fields{
				"skew_ms":       skew.Milliseconds(),
				"skipped_ticks": w.skippedTicks,
			}).Warn("clock fault detected, tick origin reset")
		}
	}
	w.lastSeen = now
	return faulted
}

// Origin returns the current tick origin instant.
func (w *Watchdog) Origin() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.origin
}

// SkippedTicks returns the cumulative count of detected clock faults.
func (w *Watchdog) SkippedTicks() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.skippedTicks
}

// Faults returns a copy of all faults recorded so far.
func (w *Watchdog) Faults() []Fault {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Fault, len(w.faults))
	copy(out, w.faults)
	return out
}

// Run polls the watchdog on its own ticker until ctx is cancelled; useful
// for a standalone clock-health monitor process rather than a loop that
// polls inline on every tick.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := w.clk.Ticker(w.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll()
		}
	}
}
