package aircraft

import (
	"testing"

	"github.com/arobi/sentinel/internal/geometry"
)

func newTestAircraft() *Aircraft {
	return New(Config{
		ID:              1,
		InitialPosition: geometry.Vec3{X: 0, Y: 0, Z: 100},
		InitialVelocity: geometry.Vec3{X: 0, Y: 50, Z: 0},
		InitialTarget:   geometry.Vec3{X: 0, Y: 5000, Z: 100},
		Size:            5,
	})
}

func TestNewSharesID(t *testing.T) {
	a := newTestAircraft()
	if a.Vehicle.ID != a.ID || a.FCC.AircraftID != a.ID {
		t.Fatalf("Vehicle/FCC id mismatch: vehicle=%d fcc=%d aircraft=%d", a.Vehicle.ID, a.FCC.AircraftID, a.ID)
	}
}

func TestResetRoundTrip(t *testing.T) {
	a := newTestAircraft()
	originalDest := a.FCC.DestinationsSnapshot()

	a.Vehicle.Move(geometry.Vec3{X: 1000, Y: 1000, Z: 0})
	a.Vehicle.Roll(30)
	a.FCC.AddLastDestination(geometry.Vec3{X: 42, Y: 42, Z: 42})

	a.Reset()

	if a.Vehicle.Position != a.InitialPosition() {
		t.Fatalf("Position after reset = %+v, want %+v", a.Vehicle.Position, a.InitialPosition())
	}
	if a.Vehicle.RollAngle != a.InitialRollAngle() {
		t.Fatalf("RollAngle after reset = %v, want %v", a.Vehicle.RollAngle, a.InitialRollAngle())
	}
	got := a.FCC.DestinationsSnapshot()
	if len(got) != len(originalDest) || got[0] != originalDest[0] {
		t.Fatalf("destinations after reset = %v, want %v", got, originalDest)
	}
}
