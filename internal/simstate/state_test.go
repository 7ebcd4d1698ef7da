package simstate

import (
	"testing"
	"time"
)

func TestNewDefaultsMinimumSeparation(t *testing.T) {
	s := New(Config{})
	if got := s.MinimumSeparation(); got != 50 {
		t.Fatalf("MinimumSeparation = %v, want 50", got)
	}
	if !s.IsRunning() {
		t.Fatal("expected IsRunning true after New")
	}
}

func TestEffectiveAvoidCollisions(t *testing.T) {
	s := New(Config{AvoidCollisions: true})
	if !s.EffectiveAvoidCollisions() {
		t.Fatal("expected effective avoidance true")
	}
	s.SetOverrideAvoidCollisions(true)
	if s.EffectiveAvoidCollisions() {
		t.Fatal("expected override to suppress avoidance")
	}
}

func TestPauseResumeAccumulatesTime(t *testing.T) {
	s := New(Config{})
	t0 := time.Unix(0, 0)
	s.Pause(t0)
	if !s.IsPaused() {
		t.Fatal("expected paused")
	}
	s.Resume(t0.Add(2 * time.Second))
	if s.IsPaused() {
		t.Fatal("expected unpaused")
	}
	if got := s.TimePaused(); got != 2*time.Second {
		t.Fatalf("TimePaused = %v, want 2s", got)
	}
}

func TestPauseIdempotent(t *testing.T) {
	s := New(Config{})
	t0 := time.Unix(0, 0)
	s.Pause(t0)
	s.Pause(t0.Add(5 * time.Second)) // second call must not move the start
	s.Resume(t0.Add(10 * time.Second))
	if got := s.TimePaused(); got != 10*time.Second {
		t.Fatalf("TimePaused = %v, want 10s", got)
	}
}

func TestRecordCollisionFirstWriteWins(t *testing.T) {
	s := New(Config{})
	s.RecordCollision(CollisionInfo{Collision: true, FirstCauses: true})
	s.RecordCollision(CollisionInfo{Collision: true, SecondCauses: true})

	got := s.Collision()
	if !got.Collision || !got.FirstCauses || got.SecondCauses {
		t.Fatalf("Collision() = %+v, want first-write to stick", got)
	}
}

func TestResetClearsCountersAndCollision(t *testing.T) {
	s := New(Config{})
	s.IncPhysicsCycles()
	s.IncADSBCycles()
	s.RecordCollision(CollisionInfo{Collision: true})
	s.DemandReset()

	s.Reset()

	if s.PhysicsCycles() != 0 || s.ADSBCycles() != 0 {
		t.Fatal("expected cycle counters cleared")
	}
	if s.Collision().Collision {
		t.Fatal("expected collision cleared")
	}
	if s.ResetDemanded() {
		t.Fatal("expected reset demand cleared")
	}
}
