package fcc

import (
	"errors"
	"testing"

	"github.com/arobi/sentinel/internal/geometry"
	"github.com/arobi/sentinel/internal/simerrors"
)

func newTestFCC(target geometry.Vec3) *FCC {
	return New(Config{
		AircraftID:    1,
		InitialTarget: target,
		InitialSpeed:  50,
		ReachRadius:   5,
	})
}

func TestAccelerateFloorsAtZero(t *testing.T) {
	f := newTestFCC(geometry.Vec3{Y: 100})
	f.Accelerate(-1000)
	if got := f.TargetSpeed(); got != 0 {
		t.Fatalf("TargetSpeed = %v, want 0", got)
	}
}

func TestAddDestinationRejectsCoincident(t *testing.T) {
	f := newTestFCC(geometry.Vec3{Y: 100})
	err := f.AddLastDestination(geometry.Vec3{}) // equals default currentPosition
	if !errors.Is(err, simerrors.ErrInvalidDestination) {
		t.Fatalf("err = %v, want ErrInvalidDestination", err)
	}
}

func TestAddDestinationSnapsToWorldBound(t *testing.T) {
	f := newTestFCC(geometry.Vec3{Y: 100})
	err := f.AddLastDestination(geometry.Vec3{X: WorldBound * 2, Y: 1, Z: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all := f.DestinationsSnapshot()
	last := all[len(all)-1]
	if last.X != WorldBound {
		t.Fatalf("X = %v, want snapped to %v", last.X, WorldBound)
	}
}

func TestUpdateComputesYawPitchTowardDestination(t *testing.T) {
	f := newTestFCC(geometry.Vec3{X: 0, Y: 100, Z: 0})
	f.Update(geometry.Vec3{}, 0)
	if got := f.TargetYaw(); got != 0 {
		t.Fatalf("TargetYaw = %v, want 0 (due north)", got)
	}
}

func TestUpdatePopsReachedDestination(t *testing.T) {
	f := newTestFCC(geometry.Vec3{X: 0, Y: 3, Z: 0})
	f.Update(geometry.Vec3{}, 0) // within reach radius 5
	if len(f.DestinationsSnapshot()) != 0 {
		t.Fatalf("expected destination popped, got %v", f.DestinationsSnapshot())
	}
	if !f.IgnoreDestinations() {
		t.Fatal("expected ignoreDestinations set after queue drained")
	}
	if len(f.DestinationsHistory()) != 1 {
		t.Fatalf("expected one history entry, got %d", len(f.DestinationsHistory()))
	}
}

func TestUpdateTargetRollSignsMatchTurnDirection(t *testing.T) {
	f := newTestFCC(geometry.Vec3{X: 100, Y: 0, Z: 0}) // due east, yaw 90
	f.Update(geometry.Vec3{}, 0)                        // currently facing north
	left, right := f.IsTurning()
	if !right || left {
		t.Fatalf("expected turning right toward east heading, got left=%v right=%v", left, right)
	}
	if f.TargetRoll() <= 0 {
		t.Fatalf("TargetRoll = %v, want positive", f.TargetRoll())
	}
}

func TestEvadeApplyResetRoundTrip(t *testing.T) {
	f := newTestFCC(geometry.Vec3{Y: 100})
	before := f.DestinationsSnapshot()

	f.ApplyEvadeManeuver(geometry.Vec3{X: 10, Y: 0, Z: 0}, 20, 0.5, 1)
	if !f.EvadeActive() {
		t.Fatal("expected evade active after ApplyEvadeManeuver")
	}
	if len(f.DestinationsSnapshot()) != len(before)+1 {
		t.Fatalf("expected one injected waypoint, got %d vs %d", len(f.DestinationsSnapshot()), len(before))
	}

	f.ResetEvadeManeuver()
	if f.EvadeActive() {
		t.Fatal("expected evade cleared after ResetEvadeManeuver")
	}
	after := f.DestinationsSnapshot()
	if len(after) != len(before) {
		t.Fatalf("destinations not restored: got %v want %v", after, before)
	}
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("destinations[%d] = %+v, want %+v", i, after[i], before[i])
		}
	}
}

func TestResetEvadeManeuverNoopWhenInactive(t *testing.T) {
	f := newTestFCC(geometry.Vec3{Y: 100})
	before := f.DestinationsSnapshot()
	f.ResetEvadeManeuver()
	after := f.DestinationsSnapshot()
	if len(before) != len(after) {
		t.Fatal("ResetEvadeManeuver should be a no-op when evade is inactive")
	}
}

func TestApplyEvadeManeuverReapplyDoesNotStackWaypoints(t *testing.T) {
	f := newTestFCC(geometry.Vec3{Y: 100})
	before := f.DestinationsSnapshot()

	f.ApplyEvadeManeuver(geometry.Vec3{X: 10, Y: 0, Z: 0}, 20, 0.5, 1)
	f.ApplyEvadeManeuver(geometry.Vec3{X: 10, Y: 0, Z: 0}, 18, 0.5, 1)
	f.ApplyEvadeManeuver(geometry.Vec3{X: 10, Y: 0, Z: 0}, 15, 0.5, 1)

	if got := f.DestinationsSnapshot(); len(got) != len(before)+1 {
		t.Fatalf("expected exactly one injected waypoint after repeated apply, got %d vs %d", len(got), len(before))
	}
	if !f.EvadeActive() {
		t.Fatal("expected evade still active after repeated apply")
	}

	f.ResetEvadeManeuver()
	after := f.DestinationsSnapshot()
	if len(after) != len(before) {
		t.Fatalf("destinations not restored after single reset: got %v want %v", after, before)
	}
}

func TestResetRestoresSingleInitialDestination(t *testing.T) {
	target := geometry.Vec3{X: 0, Y: 500, Z: 0}
	f := newTestFCC(target)
	f.AddLastDestination(geometry.Vec3{X: 1, Y: 1, Z: 1})
	f.ApplyEvadeManeuver(geometry.Vec3{X: 1, Y: 0, Z: 0}, 10, 0.5, 1)

	f.Reset()

	got := f.DestinationsSnapshot()
	if len(got) != 1 || got[0] != target {
		t.Fatalf("Reset destinations = %v, want [%v]", got, target)
	}
	if f.EvadeActive() {
		t.Fatal("expected evade cleared after Reset")
	}
}
