package scenario

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/arobi/sentinel/internal/adsb"
	"github.com/arobi/sentinel/internal/aircraft"
	"github.com/arobi/sentinel/internal/clock"
	"github.com/arobi/sentinel/internal/geometry"
	"github.com/arobi/sentinel/internal/physics"
)

func headOnRecord() Record {
	return Record{
		TestID:        "head-on",
		InitialPositions:  []geometry.Vec3{{X: 0, Y: 0, Z: 100}, {X: 0, Y: 5000, Z: 100}},
		InitialVelocities: []geometry.Vec3{{X: 0, Y: 50, Z: 0}, {X: 0, Y: -50, Z: 0}},
		InitialTargets:    []geometry.Vec3{{X: 0, Y: 5000, Z: 100}, {X: 0, Y: 0, Z: 100}},
		Size:              5,
		MinimumSeparation: 50,
	}
}

func TestHeadOnWithoutAvoidanceCollides(t *testing.T) {
	r := NewRunner(clock.NewMock(), nil)
	res := r.RunHeadless(context.Background(), headOnRecord(), false, 110*time.Second)

	if !res.Collision {
		t.Fatal("expected collision without avoidance")
	}
	if res.MinimalRelativeDistance >= 10 {
		t.Fatalf("MinimalRelativeDistance = %v, want < 10", res.MinimalRelativeDistance)
	}
}

func TestHeadOnWithAvoidanceNoCollision(t *testing.T) {
	r := NewRunner(clock.NewMock(), nil)
	res := r.RunHeadless(context.Background(), headOnRecord(), true, 110*time.Second)

	if res.Collision {
		t.Fatal("expected no collision with avoidance enabled")
	}
	if res.MinimalRelativeDistance < 50 {
		t.Fatalf("MinimalRelativeDistance = %v, want >= 50", res.MinimalRelativeDistance)
	}
}

func TestNoConflictParallelNoManeuverOverSixtySeconds(t *testing.T) {
	rec := Record{
		TestID:            "parallel",
		InitialPositions:  []geometry.Vec3{{X: 0, Y: 0, Z: 100}, {X: 200, Y: 0, Z: 100}},
		InitialVelocities: []geometry.Vec3{{X: 0, Y: 50, Z: 0}, {X: 0, Y: 50, Z: 0}},
		InitialTargets:    []geometry.Vec3{{X: 0, Y: 10000, Z: 100}, {X: 200, Y: 10000, Z: 100}},
		Size:              5,
		MinimumSeparation: 50,
	}
	maneuvers := 0
	r := NewRunner(clock.NewMock(), nil).WithReportFunc(func(rep adsb.Report) {
		if rep.ManeuverTriggered {
			maneuvers++
		}
	})
	res := r.RunHeadless(context.Background(), rec, true, 60*time.Second)

	if res.Collision {
		t.Fatal("expected no collision for non-conflicting parallel flight")
	}
	if maneuvers != 0 {
		t.Fatalf("maneuvers triggered = %d, want 0", maneuvers)
	}
}

func TestRunHeadlessRespectsContextCancellation(t *testing.T) {
	r := NewRunner(clock.NewMock(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := r.RunHeadless(ctx, headOnRecord(), true, 110*time.Second)
	// Cancelled before any tick: the fleet should be in its initial state.
	if res.FinalPositions[0] != headOnRecord().InitialPositions[0] {
		t.Fatalf("expected no movement after immediate cancellation, got %+v", res.FinalPositions[0])
	}
}

func TestClimbDescentCrossingPitchStaysWithinEnvelope(t *testing.T) {
	rec := Record{
		TestID:            "climb-descent",
		InitialPositions:  []geometry.Vec3{{X: 0, Y: 0, Z: 50}, {X: 0, Y: 5000, Z: 150}},
		InitialVelocities: []geometry.Vec3{{X: 0, Y: 50, Z: 5}, {X: 0, Y: -50, Z: -5}},
		InitialTargets:    []geometry.Vec3{{X: 0, Y: 5000, Z: 150}, {X: 0, Y: 0, Z: 50}},
		Size:              5,
		MinimumSeparation: 50,
	}
	maxPitch := 0.0
	r := NewRunner(clock.NewMock(), nil).WithObserver(func(fleet []*aircraft.Aircraft) {
		for _, a := range fleet {
			v := a.Vehicle.Velocity
			if p := math.Abs(math.Atan2(v.Z, v.NormXY()) * 180 / math.Pi); p > maxPitch {
				maxPitch = p
			}
		}
	})
	res := r.RunHeadless(context.Background(), rec, true, 110*time.Second)

	if maxPitch > 45+1e-9 {
		t.Fatalf("max |pitch| = %v, want <= 45", maxPitch)
	}
	if res.MinimalRelativeDistance < 50 {
		t.Fatalf("MinimalRelativeDistance = %v, want >= 50", res.MinimalRelativeDistance)
	}
}

func TestRunHeadlessFeedsObserverAndReportFunc(t *testing.T) {
	var observerCalls, reportCalls int
	r := NewRunner(clock.NewMock(), nil).
		WithObserver(physics.Observer(func(fleet []*aircraft.Aircraft) {
			observerCalls++
		})).
		WithReportFunc(adsb.ReportFunc(func(rep adsb.Report) {
			reportCalls++
		}))

	r.RunHeadless(context.Background(), headOnRecord(), true, 30*time.Second)

	if observerCalls == 0 {
		t.Fatal("expected the physics observer to be invoked at least once")
	}
	if reportCalls == 0 {
		t.Fatal("expected the ADS-B report func to be invoked at least once for a converging head-on scenario")
	}
}
