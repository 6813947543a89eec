package control

import (
	"io"
	"log"
	"testing"
)

type fakeEntity struct {
	moveCalls [][2]float64
	lookCalls [][2]float64
	jumps     int
	speed     float64
	speedSets int
}

func (e *fakeEntity) AddMovementInput(forward, right float64) {
	e.moveCalls = append(e.moveCalls, [2]float64{forward, right})
}

func (e *fakeEntity) AddYawPitchInput(yawDeg, pitchDeg float64) {
	e.lookCalls = append(e.lookCalls, [2]float64{yawDeg, pitchDeg})
}

func (e *fakeEntity) Jump() { e.jumps++ }

func (e *fakeEntity) SetMaxWalkSpeed(speed float64) {
	e.speed = speed
	e.speedSets++
}

func provider(e *fakeEntity) EntityProvider {
	return EntityProviderFunc(func() (Entity, bool) {
		if e == nil {
			return nil, false
		}
		return e, true
	})
}

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func TestApplicator_MoveAndLookScaling(t *testing.T) {
	e := &fakeEntity{}
	a := NewApplicator(provider(e), 600, 1000, discard())

	a.Apply(ResolvedFrame{MoveAxis: [2]float64{1, -0.5}, LookRate: [2]float64{90, -30}}, 0.1)

	if len(e.moveCalls) != 1 || e.moveCalls[0] != [2]float64{1, -0.5} {
		t.Fatalf("moveCalls = %v", e.moveCalls)
	}
	// deg/sec scaled by frame delta.
	if len(e.lookCalls) != 1 || e.lookCalls[0] != [2]float64{9, -3} {
		t.Fatalf("lookCalls = %v, want [(9,-3)]", e.lookCalls)
	}
}

func TestApplicator_NegligibleInputSkipped(t *testing.T) {
	e := &fakeEntity{}
	a := NewApplicator(provider(e), 600, 1000, discard())

	a.Apply(ResolvedFrame{MoveAxis: [2]float64{1e-6, 0}, LookRate: [2]float64{0, 1e-7}}, 0.1)

	if len(e.moveCalls) != 0 || len(e.lookCalls) != 0 {
		t.Fatalf("negligible axes should not reach the entity: move=%v look=%v", e.moveCalls, e.lookCalls)
	}
}

func TestApplicator_JumpInvokedPerCount(t *testing.T) {
	e := &fakeEntity{}
	a := NewApplicator(provider(e), 600, 1000, discard())

	a.Apply(ResolvedFrame{JumpCount: 3}, 0.016)
	if e.jumps != 3 {
		t.Fatalf("jumps = %d, want 3", e.jumps)
	}
}

func TestApplicator_SprintAppliedOnce(t *testing.T) {
	e := &fakeEntity{speed: 600}
	a := NewApplicator(provider(e), 600, 1000, discard())

	on := true
	a.Apply(ResolvedFrame{Sprint: &on}, 0.016)
	if e.speed != 1000 || e.speedSets != 1 {
		t.Fatalf("speed = %g sets=%d, want 1000 set once", e.speed, e.speedSets)
	}

	// A frame without a sprint decision leaves the speed alone.
	a.Apply(ResolvedFrame{}, 0.016)
	if e.speedSets != 1 {
		t.Fatalf("speedSets = %d, want still 1", e.speedSets)
	}

	off := false
	a.Apply(ResolvedFrame{Sprint: &off}, 0.016)
	if e.speed != 600 || e.speedSets != 2 {
		t.Fatalf("speed = %g sets=%d, want back to 600", e.speed, e.speedSets)
	}
}

func TestApplicator_NoEntityIsSafe(t *testing.T) {
	a := NewApplicator(provider(nil), 600, 1000, discard())
	on := true
	// Must not panic; the frame is simply dropped.
	a.Apply(ResolvedFrame{MoveAxis: [2]float64{1, 0}, JumpCount: 2, Sprint: &on}, 0.016)
}
