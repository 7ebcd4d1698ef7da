// Package scenario implements ScenarioRunner (C7): it seeds a two- (or
// three-) aircraft fleet from a ScenarioRecord, runs PhysicsLoop and
// ADSBLoop for a bounded simulated duration or until a termination
// condition, and produces a ScenarioResult.
package scenario

import (
	"github.com/arobi/sentinel/internal/geometry"
)

// Record is the external, language-neutral description of a scenario: two
// (or three) initial positions, velocities, targets, and roll angles, plus
// the inter-aircraft bearing at t=0. Per §9 open question (i), the
// physics/ADS-B rates are scenario parameters rather than constants; zero
// means "use the package defaults".
type Record struct {
	TestID        string
	AircraftAngle float64 // bearing between the two aircraft at t=0, degrees

	InitialPositions  []geometry.Vec3
	InitialVelocities []geometry.Vec3
	InitialTargets    []geometry.Vec3
	InitialRollAngles []float64

	Size              float64 // vehicle sphere radius, meters; 0 => default 5
	MinimumSeparation float64 // meters; 0 => default 50
	PhysicsRateHz     float64 // 0 => physics.DefaultRateHz
	ADSBRateHz        float64 // 0 => adsb.DefaultRateHz
}

// Result is a Record extended with the outcome of one run: final
// positions/velocities, whether a collision occurred, and the minimum
// pairwise separation observed.
type Result struct {
	Record Record

	FinalPositions  []geometry.Vec3
	FinalVelocities []geometry.Vec3

	Collision               bool
	HeadOnCollision         bool
	MinimalRelativeDistance float64

	AvoidCollisions bool // which condition produced this result

	PhysicsRateHz float64 // rates actually used, echoed for reproducibility
	ADSBRateHz    float64
}
