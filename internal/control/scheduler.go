package control

import (
	"time"

	"strands.run/internal/protocol"
)

// timedAction is one continuous action window: a 2-vector payload valid
// until expiresAt. Move windows carry (forward,right) axes, look windows
// carry (yawRate,pitchRate) in deg/sec.
type timedAction struct {
	vec       [2]float64
	expiresAt time.Time
}

// ResolvedFrame is the single effective action for one simulation frame.
type ResolvedFrame struct {
	MoveAxis  [2]float64 // clamped to [-1,1] per component
	LookRate  [2]float64 // deg/sec, unclamped
	JumpCount int
	Sprint    *bool // nil when no sprint command arrived since the last resolve
}

// Scheduler ingests decoded commands and resolves them into one effective
// action per frame. Overlapping move/look windows coexist and are summed at
// resolve time; jump and sprint are consumed destructively exactly once.
// Not safe for concurrent use: ingest and resolve belong to the frame loop.
type Scheduler struct {
	moves []timedAction
	looks []timedAction

	jumpCount int
	sprint    *bool
}

func NewScheduler() *Scheduler { return &Scheduler{} }

// Ingest records one command. Move and look append a new window with
// expiry now+max(0,duration); existing windows are never merged.
func (s *Scheduler) Ingest(cmd protocol.Command, now time.Time) {
	switch cmd.Kind {
	case protocol.CmdMove:
		s.moves = append(s.moves, timedAction{
			vec:       [2]float64{cmd.Move.Forward, cmd.Move.Right},
			expiresAt: now.Add(durationOrZero(cmd.Move.Duration)),
		})
	case protocol.CmdLook:
		s.looks = append(s.looks, timedAction{
			vec:       [2]float64{cmd.Look.YawRate, cmd.Look.PitchRate},
			expiresAt: now.Add(durationOrZero(cmd.Look.Duration)),
		})
	case protocol.CmdJump:
		s.jumpCount++
	case protocol.CmdSprint:
		enabled := cmd.Sprint.Enabled
		s.sprint = &enabled // last writer wins within a frame
	}
}

// Resolve sweeps expired windows, sums the survivors, clamps the move axes
// and consumes the jump counter and sprint latch. Call exactly once per
// frame, before Apply.
func (s *Scheduler) Resolve(now time.Time) ResolvedFrame {
	var f ResolvedFrame

	s.moves = sweepAndSum(s.moves, now, &f.MoveAxis)
	f.MoveAxis[0] = clamp(f.MoveAxis[0], -1, 1)
	f.MoveAxis[1] = clamp(f.MoveAxis[1], -1, 1)

	// Look rates stay unclamped: they are deg/sec, scaled by frame delta
	// at apply time.
	s.looks = sweepAndSum(s.looks, now, &f.LookRate)

	f.JumpCount = s.jumpCount
	s.jumpCount = 0

	f.Sprint = s.sprint
	s.sprint = nil

	return f
}

// PendingWindows reports the live move and look window counts (after the
// last sweep). Used for metrics.
func (s *Scheduler) PendingWindows() (moves, looks int) {
	return len(s.moves), len(s.looks)
}

func sweepAndSum(pool []timedAction, now time.Time, sum *[2]float64) []timedAction {
	kept := pool[:0]
	for _, a := range pool {
		if !a.expiresAt.After(now) {
			continue // expiresAt <= now contributes nothing
		}
		sum[0] += a.vec[0]
		sum[1] += a.vec[1]
		kept = append(kept, a)
	}
	return kept
}

func durationOrZero(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
