// Package physics implements PhysicsLoop: the fixed-Δt integrator that
// drives every FCC's Update, applies inertia-limited angular rates to
// each Vehicle, rebuilds velocity from (speed, yaw, pitch), and detects
// sphere-sphere collisions.
package physics

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
	DefaultRateHz             = 100.0
	DefaultRollDynamicDelay   = 1000 * time.Millisecond
	DefaultPitchDynamicDelay  = 2000 * time.Millisecond
	DefaultMaxAcceleration    = 2.0 // m/s^2
	DefaultGravity            = 9.81
	rollFullSwing             = 90.0 // degrees, §4.3 "90°/roll_dynamic_delay"
	pitchFullSwing            = 45.0 // degrees, §4.3 "45°/pitch_dynamic_delay"
)

// Observer receives the post-update fleet snapshot at every physics tick
// boundary, per §9's observer-callback seam ("the core exposes plain
// observer callbacks for telemetry, invoked at tick boundaries"). It runs
// synchronously on the physics goroutine, so implementations must not
// block (e.g. hand snapshots to a buffered channel rather than doing I/O
// directly).
type Observer func(fleet []*aircraft.Aircraft)

// Config parameterizes a PhysicsLoop. Zero values fall back to the §6
// defaults.
type Config struct {
	RateHz            float64
	RollDynamicDelay  time.Duration
	PitchDynamicDelay time.Duration
	MaxAcceleration   float64
	Gravity           float64
	Logger            *logrus.Logger

	// Observer is optional; nil means no telemetry is emitted.
	Observer Observer
}

func (c Config) withDefaults() Config {
	if c.RateHz == 0 {
		c.RateHz = DefaultRateHz
	}
	if c.RollDynamicDelay == 0 {
		c.RollDynamicDelay = DefaultRollDynamicDelay
	}
	if c.PitchDynamicDelay == 0 {
		c.PitchDynamicDelay = DefaultPitchDynamicDelay
	}
	if c.MaxAcceleration == 0 {
		c.MaxAcceleration = DefaultMaxAcceleration
	}
	if c.Gravity == 0 {
		c.Gravity = DefaultGravity
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

// Loop is the fixed-rate physics integrator.
type Loop struct {
	cfg   Config
	state *simstate.SimulationState
	clk   clock.Clock
	watch *clock.Watchdog

	// yaw is tracked per-aircraft outside the Vehicle record, since the
	// vehicle's own invariant (§3) reserves RollAngle but derives heading
	// from velocity direction; keeping it here avoids re-deriving yaw
	// from atan2(vx,vy) every tick, which is singular at zero speed.
	yaw map[int]float64

	speed map[int]float64

	dt time.Duration
}

// New creates a Loop over the given SimulationState and clock.
func New(cfg Config, state *simstate.SimulationState, clk clock.Clock) *Loop {
	cfg = cfg.withDefaults()
	dt := time.Duration(float64(time.Second) / cfg.RateHz)
	return &Loop{
		cfg:   cfg,
		state: state,
		clk:   clk,
		watch: clock.NewWatchdog(clk, dt, cfg.Logger),
		yaw:   make(map[int]float64),
		speed: make(map[int]float64),
		dt:    dt,
	}
}

// Delta returns the fixed tick duration Δt.
func (l *Loop) Delta() time.Duration { return l.dt }

// Seed initializes the loop's per-aircraft yaw/speed tracking from the
// aircraft's current velocity. Call once after constructing the aircraft
// set (and again after any Aircraft.Reset()).
func (l *Loop) Seed(fleet []*aircraft.Aircraft) {
	for _, a := range fleet {
		v := a.Vehicle.Velocity
		l.speed[a.ID] = v.Norm()
		if v.NormXY() == 0 && v.Z == 0 {
			l.yaw[a.ID] = 0
		} else {
			l.yaw[a.ID] = geometry.HeadingXY(v)
		}
	}
}

// Step advances every aircraft in fleet by one Δt and runs the pairwise
// collision check. fleet must be in ascending aircraft-id order, per the
// §5 ordering guarantee.
func (l *Loop) Step(fleet []*aircraft.Aircraft) {
	dtSeconds := l.dt.Seconds()

	for _, a := range fleet {
		l.stepAircraft(a, dtSeconds)
	}

	l.state.IncPhysicsCycles()
	l.detectCollisions(fleet)

	if l.cfg.Observer != nil {
		l.cfg.Observer(fleet)
	}
}

func (l *Loop) stepAircraft(a *aircraft.Aircraft, dtSeconds float64) {
	v := a.Vehicle
	f := a.FCC

	currentYaw := l.yaw[a.ID]
	f.Update(v.Position, currentYaw)

	// Angular inertia step: roll approaches target_roll bounded by the
	// configured swing rate.
	rollRate := rollFullSwing / l.cfg.RollDynamicDelay.Seconds()
	newRoll := approach(v.RollAngle, f.TargetRoll(), rollRate*dtSeconds)
	dRoll := newRoll - v.RollAngle

	pitchRate := pitchFullSwing / l.cfg.PitchDynamicDelay.Seconds()
	// Pitch has no persistent vehicle field; track implicitly via the
	// velocity vector's z-component angle, approached the same way roll
	// is, using the FCC's target pitch as the limit.
	currentPitch := geometry.PitchFromDelta(v.Velocity)
	newPitch := approach(currentPitch, f.TargetPitch(), pitchRate*dtSeconds)

	// Yaw step: coordinated-turn relation using the *updated* roll so the
	// turn rate reflects this tick's commanded bank.
	vxy := v.Velocity.NormXY()
	newYaw := currentYaw
	if vxy > 0 {
		rollRad := newRoll * math.Pi / 180
		yawRateDegPerSec := (l.cfg.Gravity * math.Tan(rollRad) / vxy) * (180 / math.Pi)
		newYaw = geometry.NormalizeAngle(currentYaw + yawRateDegPerSec*dtSeconds)
	}

	// Speed step: converge to target_speed bounded by max_acceleration.
	currentSpeed := l.speed[a.ID]
	newSpeed := approach(currentSpeed, f.TargetSpeed(), l.cfg.MaxAcceleration*dtSeconds)

	newVelocity := velocityFromSpeedYawPitch(newSpeed, newYaw, newPitch)

	v.Move(newVelocity.Scale(dtSeconds))
	v.Roll(dRoll)

	l.yaw[a.ID] = newYaw
	l.speed[a.ID] = newSpeed
	v.Velocity = newVelocity
}

// approach steps current toward target by at most maxStep (which must be
// non-negative); it never overshoots.
func approach(current, target, maxStep float64) float64 {
	delta := target - current
	if delta > maxStep {
		delta = maxStep
	} else if delta < -maxStep {
		delta = -maxStep
	}
	return current + delta
}

// velocityFromSpeedYawPitch rebuilds a velocity vector of magnitude speed
// from yaw (compass bearing, degrees) and pitch (degrees above horizontal),
// the inverse of geometry.HeadingXY/PitchFromDelta.
func velocityFromSpeedYawPitch(speed, yawDeg, pitchDeg float64) geometry.Vec3 {
	yaw := yawDeg * math.Pi / 180
	pitch := pitchDeg * math.Pi / 180
	horizontal := speed * math.Cos(pitch)
	return geometry.Vec3{
		X: horizontal * math.Sin(yaw),
		Y: horizontal * math.Cos(yaw),
		Z: speed * math.Sin(pitch),
	}
}

// detectCollisions implements §4.3 step 4: pairwise sphere-sphere
// intersection on the post-update snapshot, classifying head-on vs.
// generic collisions for reporting only (§9 open question iii).
func (l *Loop) detectCollisions(fleet []*aircraft.Aircraft) {
	for i := 0; i < len(fleet); i++ {
		for j := i + 1; j < len(fleet); j++ {
			a, b := fleet[i], fleet[j]
			dist := a.Vehicle.Position.Distance(b.Vehicle.Position)
			if dist > a.Vehicle.Size+b.Vehicle.Size {
				continue
			}

			rel := b.Vehicle.Position.Sub(a.Vehicle.Position)
			relVel := b.Vehicle.Velocity.Sub(a.Vehicle.Velocity)
			aCauses := a.Vehicle.Velocity.Dot(rel) > 0
			bCauses := b.Vehicle.Velocity.Dot(rel.Scale(-1)) > 0

			headOn := isHeadOn(rel, relVel, l.dt.Seconds())

			l.state.RecordCollision(simstate.CollisionInfo{
				Collision:    true,
				HeadOn:       headOn,
				FirstCauses:  aCauses,
				SecondCauses: bCauses,
			})
			l.cfg.Logger.WithFields(logrus.Fields{
				"aircraft_a": a.ID,
				"aircraft_b": b.ID,
				"distance":   dist,
				"head_on":    headOn,
			}).Warn("collision detected")
		}
	}
}

// isHeadOn reports whether the closest-approach point (projected from the
// relative geometry at the instant of contact) coincides with the contact
// point within one Δt step, per §4.3 step 4.
func isHeadOn(rel, relVel geometry.Vec3, dt float64) bool {
	speed2 := relVel.Dot(relVel)
	if speed2 == 0 {
		return false
	}
	tStar := -rel.Dot(relVel) / speed2
	if tStar < 0 {
		tStar = 0
	}
	return math.Abs(tStar) <= dt
}

// Run drives Step on a fixed schedule sourced from the injected clock,
// honoring SimulationState's pause flag and, in realtime mode, sleeping to
// the next aligned tick while bounding catch-up to a single tick (§4.3
// step 5, §5 suspension points).
func (l *Loop) Run(ctx context.Context, fleet []*aircraft.Aircraft) error {
	ticker := l.clk.Ticker(l.dt)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.watch.Poll() // tick-origin reset on fault is internal to the watchdog
			if l.state.IsPaused() {
				continue
			}
			l.Step(fleet)
		}
	}
}
