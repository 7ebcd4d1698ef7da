// Package fcc implements the per-aircraft flight-control computer: the
// destination queue, the yaw/pitch/roll setpoint autopilot, and the
// geometric evade maneuver ADSBLoop injects on conflict.
package fcc

import (
	"fmt"
	"sync"

	"github.com/arobi/sentinel/internal/geometry"
	"github.com/arobi/sentinel/internal/simerrors"
	"github.com/sirupsen/logrus"
)

// WorldBound is the default coordinate magnitude any destination
// component is snapped to when it exceeds it, per check_new_destination
// in §4.2. It has no bearing on the physics volume itself, only on
// destination validation.
const WorldBound = 100000.0

// NormalizeAngle and FormatYawAngle are the pure total helpers named in
// §4.2; the arithmetic lives in package geometry since both FCC and
// PhysicsLoop need it.
func NormalizeAngle(a float64) float64  { return geometry.NormalizeAngle(a) }
func FormatYawAngle(a float64) float64 { return geometry.FormatYawAngle(a) }

// FCC is the flight-control computer owned by one Aircraft.
type FCC struct {
	AircraftID int

	mu sync.Mutex

	destinations        destinationQueue
	destinationsHistory  []geometry.Vec3
	visited              []geometry.Vec3

	autopilot          bool
	ignoreDestinations bool
	initialTarget      geometry.Vec3

	targetYaw   float64
	targetPitch float64
	targetRoll  float64
	targetSpeed float64

	isTurningLeft  bool
	isTurningRight bool

	safeZoneOccupied bool
	evadeManeuver    bool

	vectorSharingResolution geometry.Vec3

	currentPosition geometry.Vec3 // mirrored by PhysicsLoop each tick, read-only here
	currentYaw      float64

	// reachRadius is the Euclidean distance to a destination's head below
	// which it counts as reached (§4.2: "Euclidean distance to head ≤
	// vehicle size"). It is set once at construction from the owning
	// Vehicle's size.
	reachRadius float64

	logger *logrus.Logger
}

// Config seeds an FCC's initial target, speed, and reach radius.
type Config struct {
	AircraftID    int
	InitialTarget geometry.Vec3
	InitialSpeed  float64
	ReachRadius   float64 // the owning Vehicle's size
	Logger        *logrus.Logger
}

// New creates an FCC with its initial destination already enqueued.
func New(cfg Config) *FCC {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	f := &FCC{
		AircraftID:    cfg.AircraftID,
		autopilot:     true,
		initialTarget: cfg.InitialTarget,
		targetSpeed:   cfg.InitialSpeed,
		reachRadius:   cfg.ReachRadius,
		logger:        logger,
	}
	f.destinations = f.destinations.pushTail(cfg.InitialTarget)
	return f
}

// Accelerate adjusts target_speed by a, floored at zero.
func (f *FCC) Accelerate(a float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targetSpeed = max0(f.targetSpeed + a)
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// TargetSpeed returns the current commanded speed.
func (f *FCC) TargetSpeed() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.targetSpeed
}

// checkNewDestination validates p against the current position (reject if
// coincident) and snaps any out-of-bound component, per §4.2.
func checkNewDestination(p, current geometry.Vec3) (geometry.Vec3, error) {
	if p == current {
		return geometry.Vec3{}, fmt.Errorf("%w: destination coincides with current position", simerrors.ErrInvalidDestination)
	}
	snap := func(c float64) float64 {
		if c > WorldBound {
			return WorldBound
		}
		if c < -WorldBound {
			return -WorldBound
		}
		return c
	}
	return geometry.Vec3{X: snap(p.X), Y: snap(p.Y), Z: snap(p.Z)}, nil
}

// AddLastDestination enqueues p at the tail after validation.
func (f *FCC) AddLastDestination(p geometry.Vec3) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	checked, err := checkNewDestination(p, f.currentPosition)
	if err != nil {
		f.logger.WithError(err).WithField("aircraft_id", f.AircraftID).Warn("destination rejected")
		return err
	}
	f.destinations = f.destinations.pushTail(checked)
	return nil
}

// AddFirstDestination enqueues p at the head after validation.
func (f *FCC) AddFirstDestination(p geometry.Vec3) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	checked, err := checkNewDestination(p, f.currentPosition)
	if err != nil {
		f.logger.WithError(err).WithField("aircraft_id", f.AircraftID).Warn("destination rejected")
		return err
	}
	f.destinations = f.destinations.pushHead(checked)
	return nil
}

// AppendVisited samples pos into the visited trail. Called at ADS-B
// cadence, not physics cadence.
func (f *FCC) AppendVisited(pos geometry.Vec3) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visited = append(f.visited, pos)
}

// Update runs every physics tick: it refreshes yaw/pitch targets from the
// head of the destination queue, then refreshes the roll target from the
// yaw error.
func (f *FCC) Update(currentPosition geometry.Vec3, currentYaw float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentPosition = currentPosition
	f.currentYaw = currentYaw
	f.updateTargetYawPitchAnglesLocked()
	f.updateTargetRollAngleLocked()
}

func (f *FCC) updateTargetYawPitchAnglesLocked() {
	head, ok := f.destinations.head()
	if !ok {
		if f.ignoreDestinations {
			return // hold course: leave targetYaw/targetPitch at previous values
		}
		return
	}

	delta := head.Sub(f.currentPosition)
	if f.currentPosition.Distance(head) <= f.reachRadius {
		f.destinationsHistory = append(f.destinationsHistory, head)
		f.destinations = f.destinations.popHead()
		if f.destinations.empty() {
			f.ignoreDestinations = true
		}
		head, ok = f.destinations.head()
		if !ok {
			return
		}
		delta = head.Sub(f.currentPosition)
	}

	f.targetYaw = geometry.HeadingXY(delta)
	f.targetPitch = geometry.PitchFromDelta(delta)
}

func (f *FCC) updateTargetRollAngleLocked() {
	delta := geometry.FormatYawAngle(f.targetYaw - f.currentYaw)
	sign := 1.0
	if delta < 0 {
		sign = -1.0
	}
	mag := delta
	if mag < 0 {
		mag = -mag
	}
	if mag > 90 {
		mag = 90
	}
	f.targetRoll = sign * mag
	f.isTurningRight = delta > 0
	f.isTurningLeft = delta < 0
}

// TargetYaw, TargetPitch, TargetRoll return the current setpoints.
func (f *FCC) TargetYaw() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.targetYaw
}

func (f *FCC) TargetPitch() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.targetPitch
}

func (f *FCC) TargetRoll() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.targetRoll
}

// IsTurning reports the current turn-direction flags; at most one is true.
func (f *FCC) IsTurning() (left, right bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isTurningLeft, f.isTurningRight
}

// SafeZoneOccupied reports whether ADSBLoop has flagged an active
// conflict for this aircraft.
func (f *FCC) SafeZoneOccupied() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.safeZoneOccupied
}

// SetSafeZoneOccupied is called by ADSBLoop when a conflict is declared or
// cleared for this aircraft.
func (f *FCC) SetSafeZoneOccupied(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.safeZoneOccupied = v
}

// EvadeActive reports whether an avoidance waypoint is currently injected.
func (f *FCC) EvadeActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.evadeManeuver
}

// DestinationsSnapshot returns a copy of the pending destination queue,
// for round-trip comparison in tests.
func (f *FCC) DestinationsSnapshot() []geometry.Vec3 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []geometry.Vec3(f.destinations.clone())
}

// IgnoreDestinations reports whether the queue ran dry and course is being
// held rather than steered.
func (f *FCC) IgnoreDestinations() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ignoreDestinations
}

// Autopilot reports whether this FCC is under automatic control.
func (f *FCC) Autopilot() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.autopilot
}

// DestinationsHistory returns a copy of the popped-waypoint history.
func (f *FCC) DestinationsHistory() []geometry.Vec3 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]geometry.Vec3, len(f.destinationsHistory))
	copy(out, f.destinationsHistory)
	return out
}

// Visited returns a copy of the sampled trail.
func (f *FCC) Visited() []geometry.Vec3 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]geometry.Vec3, len(f.visited))
	copy(out, f.visited)
	return out
}

// evadeWaypointFactor scales the vector-sharing resolution into a
// synthetic waypoint offset far enough that the detour clears the
// opponent's safe zone at the predicted encounter (§4.2 "k chosen so the
// detour lies outside the safe zone of the opponent").
const evadeWaypointFactor = 3.0

// ApplyEvadeManeuver computes vector_sharing_resolution from the supplied
// geometry and injects a synthetic avoidance waypoint at the head of the
// destination queue, per §4.2/§4.4. weight is this aircraft's share of the
// correction (w_i in §4.4, already computed by ADSBLoop); sign flips the
// direction so the paired aircraft's maneuvers diverge.
//
// A conflict is typically declared for several consecutive ADS-B cycles
// before it clears (t* only gradually climbs back past the horizon as the
// aircraft banks away), so ADSBLoop calls this repeatedly for the same
// pair. If an evade waypoint is already injected, that waypoint is popped
// before the refreshed one is pushed, so the queue gains exactly one
// avoidance entry for the lifetime of a single conflict rather than one
// per cycle it is reassessed.
func (f *FCC) ApplyEvadeManeuver(missDistance geometry.Vec3, unresolvedRegion float64, weight float64, sign float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.evadeManeuver {
		f.destinations = f.destinations.popHead()
	}

	resolution := resolutionDirection(missDistance).Scale(unresolvedRegion * weight * sign)
	f.vectorSharingResolution = resolution

	waypoint := f.currentPosition.Add(resolution.Scale(evadeWaypointFactor))
	f.destinations = f.destinations.pushHead(waypoint)
	f.evadeManeuver = true
}

// zeroMissDirection is the deterministic horizontal direction used when the
// supplied miss-distance vector is the zero vector, so it has no direction
// of its own to resolve along. ADSBLoop substitutes the horizontal
// perpendicular of the relative velocity for a zero miss distance, so this
// fallback only applies when that perpendicular is zero as well.
var zeroMissDirection = geometry.Vec3{X: 1, Y: 0, Z: 0}

// resolutionDirection returns the unit miss-distance direction, or, when
// the miss distance is exactly zero, the deterministic fallback direction
// per the §4.4 tie-break.
func resolutionDirection(missDistance geometry.Vec3) geometry.Vec3 {
	if missDistance.IsZero() {
		return zeroMissDirection
	}
	return missDistance.Unit()
}

// ResetEvadeManeuver removes the injected avoidance waypoint and clears
// the evade flag, restoring the destination queue to its pre-maneuver
// contents (§8 round-trip property).
func (f *FCC) ResetEvadeManeuver() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.evadeManeuver {
		return
	}
	f.destinations = f.destinations.popHead()
	f.evadeManeuver = false
	f.vectorSharingResolution = geometry.Vec3{}
}

// VectorSharingResolution returns the last computed avoidance resolution
// vector.
func (f *FCC) VectorSharingResolution() geometry.Vec3 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vectorSharingResolution
}

// Reset restores the FCC to its post-construction state: a single queued
// destination (the initial target), cleared history/visited/evade state.
func (f *FCC) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destinations = destinationQueue{f.initialTarget}
	f.destinationsHistory = nil
	f.visited = nil
	f.ignoreDestinations = false
	f.isTurningLeft = false
	f.isTurningRight = false
	f.safeZoneOccupied = false
	f.evadeManeuver = false
	f.vectorSharingResolution = geometry.Vec3{}
}
