package estimation

import (
	"math"
	"testing"

	"github.com/arobi/sentinel/internal/geometry"
)

func TestFirstUpdateSeedsPositionExactly(t *testing.T) {
	tr := New(Config{})
	got := tr.Update(geometry.Vec3{X: 10, Y: 20, Z: 30}, 0)
	want := geometry.Vec3{X: 10, Y: 20, Z: 30}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestTrackerConvergesTowardConstantVelocityTrack(t *testing.T) {
	tr := New(Config{})
	pos := geometry.Vec3{X: 0, Y: 0, Z: 100}
	vel := geometry.Vec3{X: 10, Y: 0, Z: 0}
	const dt = 0.1

	var last geometry.Vec3
	for i := 0; i < 200; i++ {
		pos = pos.Add(vel.Scale(dt))
		last = tr.Update(pos, dt)
	}

	if math.Abs(last.X-pos.X) > 2.0 {
		t.Fatalf("filtered X = %v, want close to ground truth %v", last.X, pos.X)
	}
}

func TestPredictWithoutSeedIsNoop(t *testing.T) {
	tr := New(Config{})
	tr.Predict(1.0) // should not panic before any Update seeds state
	if got := tr.Position(); got != (geometry.Vec3{}) {
		t.Fatalf("expected zero position before seeding, got %+v", got)
	}
}
