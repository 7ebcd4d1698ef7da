// Package adsb implements ADSBLoop: the low-rate broadcast-surveillance
// observer that computes pairwise closest-approach geometry and triggers
// FCC evade maneuvers when the safe zone is projected to be violated.
//
// The closest-point-of-approach formula and its zero-division/clamping
// edge cases are the hard part of this package; get those two checks
// wrong and every downstream avoidance decision is wrong with them.
package adsb

import (
	"context"
	"math"
	"time"

	"github.com/arobi/sentinel/internal/aircraft"
	"github.com/arobi/sentinel/internal/clock"
	"github.com/arobi/sentinel/internal/geometry"
	"github.com/arobi/sentinel/internal/simstate"
	"github.com/sirupsen/logrus"
)

// Defaults from §6.
const (
	DefaultRateHz       = 1.0
	DefaultHorizon      = 30 * time.Second
)

// Report is a per-assessed-conflict summary emitted to an optional
// observer, per §4.4 step 6 ("optionally emit a textual report for
// observers"). ManeuverTriggered reflects whether avoidance was actually in
// effect for the cycle the conflict was declared in, not just whether this
// particular pair's maneuver was applied.
type Report struct {
	AircraftA, AircraftB int
	MissDistance         float64
	TimeToCPA            float64
	ManeuverTriggered    bool
}

// ReportFunc receives a Report for every declared conflict. It runs
// synchronously on the ADS-B goroutine; implementations must not block.
type ReportFunc func(Report)

// Config parameterizes an ADSBLoop.
type Config struct {
	RateHz  float64
	Horizon time.Duration
	Logger  *logrus.Logger

	// ReportFunc is optional; nil means no reports are emitted.
	ReportFunc ReportFunc
}

func (c Config) withDefaults() Config {
	if c.RateHz == 0 {
		c.RateHz = DefaultRateHz
	}
	if c.Horizon == 0 {
		c.Horizon = DefaultHorizon
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

// Loop is the low-rate conflict-detection and avoidance observer.
type Loop struct {
	cfg   Config
	state *simstate.SimulationState
	clk   clock.Clock

	minimalRelativeDistance float64
}

// New creates a Loop over the given SimulationState and clock.
func New(cfg Config, state *simstate.SimulationState, clk clock.Clock) *Loop {
	cfg = cfg.withDefaults()
	return &Loop{
		cfg:                     cfg,
		state:                   state,
		clk:                     clk,
		minimalRelativeDistance: math.Inf(1),
	}
}

// Delta returns the fixed tick duration 1/f_adsb.
func (l *Loop) Delta() time.Duration {
	return time.Duration(float64(time.Second) / l.cfg.RateHz)
}

// MinimalRelativeDistance returns the smallest miss distance observed
// across all cycles so far, for ScenarioResult.
func (l *Loop) MinimalRelativeDistance() float64 {
	return l.minimalRelativeDistance
}

// conflict describes a declared conflict between two snapshots.
type conflict struct {
	a, b             *aircraft.Aircraft
	missDistanceVec  geometry.Vec3 // m, from a toward b at t*
	missDistance     float64       // d_m
	timeToCPA        float64       // t*
}

// Step runs one ADS-B cycle over fleet (in ascending id order, matching
// §5's snapshot discipline — the caller is expected to hand this loop a
// consistent snapshot of vehicle state, e.g. under PhysicsLoop's
// double-buffer or a shared read lock).
func (l *Loop) Step(fleet []*aircraft.Aircraft) {
	for _, a := range fleet {
		a.FCC.AppendVisited(a.Vehicle.Position)
	}

	var conflicts []conflict

	for i := 0; i < len(fleet); i++ {
		for j := i + 1; j < len(fleet); j++ {
			a, b := fleet[i], fleet[j]
			c, ok := l.assessPair(a, b)
			if !ok {
				continue
			}
			if c.missDistance < l.minimalRelativeDistance {
				l.minimalRelativeDistance = c.missDistance
			}
			if c.missDistance < l.state.MinimumSeparation() && c.timeToCPA <= l.cfg.Horizon.Seconds() {
				conflicts = append(conflicts, c)
				if l.cfg.ReportFunc != nil {
					l.cfg.ReportFunc(Report{
						AircraftA:         a.ID,
						AircraftB:         b.ID,
						MissDistance:      c.missDistance,
						TimeToCPA:         c.timeToCPA,
						ManeuverTriggered: l.state.EffectiveAvoidCollisions(),
					})
				}
			} else if a.FCC.EvadeActive() || b.FCC.EvadeActive() {
				a.FCC.ResetEvadeManeuver()
				b.FCC.ResetEvadeManeuver()
				a.FCC.SetSafeZoneOccupied(false)
				b.FCC.SetSafeZoneOccupied(false)
			}
		}
	}

	if l.state.EffectiveAvoidCollisions() {
		for _, c := range conflicts {
			l.applyAvoidance(c)
		}
	}

	l.state.IncADSBCycles()
}

// assessPair computes the closest-point-of-approach geometry for one
// unordered pair, per §4.4 step 2. ok is false when the pair must be
// skipped per the §4.4/§8 tie-break rules (zero relative speed).
func (l *Loop) assessPair(a, b *aircraft.Aircraft) (conflict, bool) {
	sa, sb := a.Vehicle.Snapshot(), b.Vehicle.Snapshot()

	r := sb.Position.Sub(sa.Position)
	v := sb.Velocity.Sub(sa.Velocity)

	speed2 := v.Dot(v)
	if speed2 == 0 {
		return conflict{}, false
	}

	tStar := -r.Dot(v) / speed2
	if tStar < 0 {
		tStar = 0
	}

	m := r.Add(v.Scale(tStar))
	dm := m.Norm()

	return conflict{a: a, b: b, missDistanceVec: m, missDistance: dm, timeToCPA: tStar}, true
}

// applyAvoidance implements §4.4 step 3: each aircraft gets a vector-
// sharing resolution scaled by its own speed share (own speed over the sum
// of both speeds), with diverging signs so the two maneuvers split apart
// rather than converge. When the miss-distance vector is exactly zero, the
// resolution runs along the horizontal perpendicular of the relative
// velocity instead.
func (l *Loop) applyAvoidance(c conflict) {
	sa, sb := c.a.Vehicle.Snapshot(), c.b.Vehicle.Snapshot()
	speedA, speedB := sa.Velocity.Norm(), sb.Velocity.Norm()

	if speedA == 0 && speedB == 0 {
		return // both stationary: no maneuver possible (§4.4 tie-break)
	}

	unresolved := l.state.MinimumSeparation() - c.missDistance
	if unresolved < 0 {
		unresolved = 0
	}

	wA := speedA / (speedA + speedB)
	wB := speedB / (speedA + speedB)

	// Deterministic divergence: lower-id aircraft takes the positive
	// resolution direction, its peer the negative, per the §4.4 tie-break
	// ("lower-id aircraft takes +") generalized to the non-degenerate case.
	signA, signB := 1.0, -1.0

	direction := c.missDistanceVec
	if direction.IsZero() {
		rv := sb.Velocity.Sub(sa.Velocity)
		direction = geometry.Vec3{X: -rv.Y, Y: rv.X}
	}

	c.a.FCC.ApplyEvadeManeuver(direction, unresolved, wA, signA)
	c.b.FCC.ApplyEvadeManeuver(direction, unresolved, wB, signB)
	c.a.FCC.SetSafeZoneOccupied(true)
	c.b.FCC.SetSafeZoneOccupied(true)

	l.cfg.Logger.WithFields(logrus.Fields{
		"aircraft_a":    c.a.ID,
		"aircraft_b":    c.b.ID,
		"miss_distance": c.missDistance,
		"time_to_cpa":   c.timeToCPA,
	}).Info("evade maneuver applied")
}

// Run drives Step on a fixed schedule sourced from the injected clock.
func (l *Loop) Run(ctx context.Context, fleet []*aircraft.Aircraft) error {
	ticker := l.clk.Ticker(l.Delta())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.state.IsPaused() {
				continue
			}
			l.Step(fleet)
		}
	}
}
