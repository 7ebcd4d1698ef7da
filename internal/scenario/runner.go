package scenario

import (
	"context"
	"math"
	"time"

	"github.com/arobi/sentinel/internal/adsb"
	"github.com/arobi/sentinel/internal/aircraft"
	"github.com/arobi/sentinel/internal/clock"
	"github.com/arobi/sentinel/internal/geometry"
	"github.com/arobi/sentinel/internal/physics"
	"github.com/arobi/sentinel/internal/simstate"
	"github.com/sirupsen/logrus"
)

// Runner is the non-visual scenario driver: ScenarioRunner in §4.5.
type Runner struct {
	clk    clock.Clock
	logger *logrus.Logger

	observer   physics.Observer
	reportFunc adsb.ReportFunc
}

// NewRunner creates a Runner over the given clock. Pass clock.New() in
// production and a clock.NewMock() in tests.
func NewRunner(clk clock.Clock, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{clk: clk, logger: logger}
}

// WithObserver attaches a physics-tick telemetry observer (§9's observer-
// callback seam); nil detaches it. Returns the Runner for chaining.
func (r *Runner) WithObserver(o physics.Observer) *Runner {
	r.observer = o
	return r
}

// WithReportFunc attaches an ADS-B conflict report sink (§4.4 step 6); nil
// detaches it. Returns the Runner for chaining.
func (r *Runner) WithReportFunc(f adsb.ReportFunc) *Runner {
	r.reportFunc = f
	return r
}

func buildFleet(rec Record, logger *logrus.Logger) []*aircraft.Aircraft {
	size := rec.Size
	if size == 0 {
		size = 5
	}
	fleet := make([]*aircraft.Aircraft, len(rec.InitialPositions))
	for i := range rec.InitialPositions {
		roll := 0.0
		if i < len(rec.InitialRollAngles) {
			roll = rec.InitialRollAngles[i]
		}
		fleet[i] = aircraft.New(aircraft.Config{
			ID:               i + 1,
			InitialPosition:  rec.InitialPositions[i],
			InitialVelocity:  rec.InitialVelocities[i],
			InitialTarget:    rec.InitialTargets[i],
			Size:             size,
			InitialRollAngle: roll,
			Logger:           logger,
		})
	}
	return fleet
}

// RunHeadless implements §4.5's ScenarioRunner.run_headless: it builds the
// fleet, runs PhysicsLoop and ADSBLoop at the scenario's cadence (or the
// package defaults) for up to duration of simulated time, stopping early
// on collision or external cancellation via ctx, and returns the
// resulting ScenarioResult.
//
// Single-threaded and cooperative by construction (§5 permits this
// provided the f_phys:f_adsb cadence ratio is preserved): physics steps
// and ADS-B cycles are interleaved synchronously rather than run as two
// goroutines racing a wall clock, which makes a headless batch run take
// time proportional to CPU work, not to the simulated duration.
func (r *Runner) RunHeadless(ctx context.Context, rec Record, avoidCollisions bool, duration time.Duration) Result {
	physRate := rec.PhysicsRateHz
	if physRate == 0 {
		physRate = physics.DefaultRateHz
	}
	adsbRate := rec.ADSBRateHz
	if adsbRate == 0 {
		adsbRate = adsb.DefaultRateHz
	}

	minSep := rec.MinimumSeparation
	if minSep == 0 {
		minSep = 50
	}

	state := simstate.New(simstate.Config{
		AvoidCollisions:   avoidCollisions,
		MinimumSeparation: minSep,
	})

	fleet := buildFleet(rec, r.logger)

	physLoop := physics.New(physics.Config{RateHz: physRate, Logger: r.logger, Observer: r.observer}, state, r.clk)
	physLoop.Seed(fleet)
	adsbLoop := adsb.New(adsb.Config{RateHz: adsbRate, Logger: r.logger, ReportFunc: r.reportFunc}, state, r.clk)

	cadenceRatio := int(math.Round(physRate / adsbRate))
	if cadenceRatio < 1 {
		cadenceRatio = 1
	}

	totalTicks := int(math.Round(duration.Seconds() * physRate))

	for tick := 0; tick < totalTicks; tick++ {
		select {
		case <-ctx.Done():
			return r.harvest(rec, fleet, state, adsbLoop, avoidCollisions, physRate, adsbRate)
		default:
		}

		if state.IsPaused() {
			continue
		}

		physLoop.Step(fleet)

		if tick%cadenceRatio == 0 {
			adsbLoop.Step(fleet)
		}

		if state.Collision().Collision {
			break
		}
	}

	return r.harvest(rec, fleet, state, adsbLoop, avoidCollisions, physRate, adsbRate)
}

func (r *Runner) harvest(rec Record, fleet []*aircraft.Aircraft, state *simstate.SimulationState, adsbLoop *adsb.Loop, avoidCollisions bool, physRate, adsbRate float64) Result {
	positions := make([]geometry.Vec3, len(fleet))
	velocities := make([]geometry.Vec3, len(fleet))
	for i, a := range fleet {
		positions[i] = a.Vehicle.Position
		velocities[i] = a.Vehicle.Velocity
	}

	collisionInfo := state.Collision()
	minDist := adsbLoop.MinimalRelativeDistance()
	if math.IsInf(minDist, 1) {
		minDist = 0
	}

	return Result{
		Record:                  rec,
		FinalPositions:          positions,
		FinalVelocities:         velocities,
		Collision:               collisionInfo.Collision,
		HeadOnCollision:         collisionInfo.HeadOn,
		MinimalRelativeDistance: minDist,
		AvoidCollisions:         avoidCollisions,
		PhysicsRateHz:           physRate,
		ADSBRateHz:              adsbRate,
	}
}
