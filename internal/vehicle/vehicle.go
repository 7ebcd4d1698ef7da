// Package vehicle holds the Vehicle type: pose, velocity, size, and roll
// angle, plus the two guarded mutators PhysicsLoop uses to advance it.
// Vehicle has no autonomous behavior of its own — it is a pure state
// container, mutated only by PhysicsLoop.
package vehicle

import "github.com/arobi/sentinel/internal/geometry"

// Vehicle is the kinematic state of a single aircraft body.
type Vehicle struct {
	ID int

	Position geometry.Vec3
	Velocity geometry.Vec3
	Size     float64 // sphere radius, meters

	RollAngle        float64
	InitialRollAngle float64

	DistanceCovered float64

	initialPosition geometry.Vec3
	initialVelocity geometry.Vec3
}

// New creates a Vehicle at the given pose, remembering it as the reset
// target.
func New(id int, position, velocity geometry.Vec3, size, rollAngle float64) *Vehicle {
	return &Vehicle{
		ID:               id,
		Position:         position,
		Velocity:         velocity,
		Size:             size,
		RollAngle:        rollAngle,
		InitialRollAngle: rollAngle,
		initialPosition:  position,
		initialVelocity:  velocity,
	}
}

// Move translates the vehicle by (dx,dy,dz) and accumulates the traveled
// distance. distance_covered is monotonically non-decreasing per §8.
func (v *Vehicle) Move(delta geometry.Vec3) {
	v.Position = v.Position.Add(delta)
	v.DistanceCovered += delta.Norm()
}

// Roll advances the roll angle by dTheta, clamped to [-90, 90] per the
// Vehicle invariant in §3.
func (v *Vehicle) Roll(dTheta float64) {
	v.RollAngle = geometry.Clamp(v.RollAngle+dTheta, -90, 90)
}

// Reset restores position, velocity, and roll angle to their values at
// construction time.
func (v *Vehicle) Reset() {
	v.Position = v.initialPosition
	v.Velocity = v.initialVelocity
	v.RollAngle = v.InitialRollAngle
	v.DistanceCovered = 0
}

// InitialPosition returns the pose the vehicle was constructed with.
func (v *Vehicle) InitialPosition() geometry.Vec3 { return v.initialPosition }

// InitialVelocity returns the velocity the vehicle was constructed with.
func (v *Vehicle) InitialVelocity() geometry.Vec3 { return v.initialVelocity }

// Snapshot is the read-only (position, velocity, size) triple ADSBLoop
// observes without touching Vehicle's owning PhysicsLoop directly.
type Snapshot struct {
	ID       int
	Position geometry.Vec3
	Velocity geometry.Vec3
	Size     float64
}

// Snapshot captures the vehicle's current kinematic state.
func (v *Vehicle) Snapshot() Snapshot {
	return Snapshot{ID: v.ID, Position: v.Position, Velocity: v.Velocity, Size: v.Size}
}
