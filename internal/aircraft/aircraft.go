// Package aircraft composes one Vehicle and one FCC sharing an id, and
// exposes the reset-to-initial-state operation used between scenario runs.
package aircraft

import (
	"github.com/arobi/sentinel/internal/fcc"
	"github.com/arobi/sentinel/internal/geometry"
	"github.com/arobi/sentinel/internal/vehicle"
	"github.com/sirupsen/logrus"
)

// Aircraft owns one Vehicle and one FCC with the same id.
type Aircraft struct {
	ID      int
	Vehicle *vehicle.Vehicle
	FCC     *fcc.FCC

	initialPosition geometry.Vec3
	initialTarget   geometry.Vec3
	initialSpeed    float64
	initialRoll     float64
}

// Config seeds a new Aircraft.
type Config struct {
	ID               int
	InitialPosition  geometry.Vec3
	InitialVelocity  geometry.Vec3
	InitialTarget    geometry.Vec3
	Size             float64
	InitialRollAngle float64
	Logger           *logrus.Logger
}

// New constructs an Aircraft's Vehicle and FCC as a matched pair.
func New(cfg Config) *Aircraft {
	v := vehicle.New(cfg.ID, cfg.InitialPosition, cfg.InitialVelocity, cfg.Size, cfg.InitialRollAngle)
	f := fcc.New(fcc.Config{
		AircraftID:    cfg.ID,
		InitialTarget: cfg.InitialTarget,
		InitialSpeed:  cfg.InitialVelocity.Norm(),
		ReachRadius:   cfg.Size,
		Logger:        cfg.Logger,
	})
	return &Aircraft{
		ID:              cfg.ID,
		Vehicle:         v,
		FCC:             f,
		initialPosition: cfg.InitialPosition,
		initialTarget:   cfg.InitialTarget,
		initialSpeed:    cfg.InitialVelocity.Norm(),
		initialRoll:     cfg.InitialRollAngle,
	}
}

// InitialPosition, InitialTarget, InitialSpeed, InitialRollAngle expose the
// construction-time parameters named in §3.
func (a *Aircraft) InitialPosition() geometry.Vec3 { return a.initialPosition }
func (a *Aircraft) InitialTarget() geometry.Vec3   { return a.initialTarget }
func (a *Aircraft) InitialSpeed() float64          { return a.initialSpeed }
func (a *Aircraft) InitialRollAngle() float64      { return a.initialRoll }

// Reset restores the Vehicle's pose/velocity/roll and replays the FCC's
// initial target as its sole queued destination (§4.5).
func (a *Aircraft) Reset() {
	a.Vehicle.Reset()
	a.FCC.Reset()
}

// Snapshot returns the current kinematic snapshot of the owned Vehicle.
func (a *Aircraft) Snapshot() vehicle.Snapshot {
	return a.Vehicle.Snapshot()
}
