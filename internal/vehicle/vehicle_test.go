package vehicle

import (
	"testing"

	"github.com/arobi/sentinel/internal/geometry"
)

func TestMoveAccumulatesDistance(t *testing.T) {
	v := New(1, geometry.Vec3{}, geometry.Vec3{}, 5, 0)
	v.Move(geometry.Vec3{X: 3, Y: 4, Z: 0})
	if v.Position != (geometry.Vec3{X: 3, Y: 4, Z: 0}) {
		t.Fatalf("Position = %+v", v.Position)
	}
	if v.DistanceCovered != 5 {
		t.Fatalf("DistanceCovered = %v, want 5", v.DistanceCovered)
	}
	v.Move(geometry.Vec3{X: 3, Y: 4, Z: 0})
	if v.DistanceCovered != 10 {
		t.Fatalf("DistanceCovered after second move = %v, want 10 (non-decreasing)", v.DistanceCovered)
	}
}

func TestRollClamps(t *testing.T) {
	v := New(1, geometry.Vec3{}, geometry.Vec3{}, 5, 0)
	v.Roll(1000)
	if v.RollAngle != 90 {
		t.Fatalf("RollAngle = %v, want clamped to 90", v.RollAngle)
	}
	v.Roll(-1000)
	if v.RollAngle != -90 {
		t.Fatalf("RollAngle = %v, want clamped to -90", v.RollAngle)
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	initPos := geometry.Vec3{X: 1, Y: 2, Z: 3}
	initVel := geometry.Vec3{X: 0, Y: 10, Z: 0}
	v := New(1, initPos, initVel, 5, 15)

	v.Move(geometry.Vec3{X: 100, Y: 100, Z: 0})
	v.Roll(40)
	v.Velocity = geometry.Vec3{X: 99, Y: 99, Z: 99}

	v.Reset()

	if v.Position != initPos {
		t.Fatalf("Position after reset = %+v, want %+v", v.Position, initPos)
	}
	if v.Velocity != initVel {
		t.Fatalf("Velocity after reset = %+v, want %+v", v.Velocity, initVel)
	}
	if v.RollAngle != 15 {
		t.Fatalf("RollAngle after reset = %v, want 15", v.RollAngle)
	}
	if v.DistanceCovered != 0 {
		t.Fatalf("DistanceCovered after reset = %v, want 0", v.DistanceCovered)
	}
}
