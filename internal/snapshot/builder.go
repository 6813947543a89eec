package snapshot

import (
	"math"
	"time"

	"strands.run/internal/protocol"
)

// Probe geometry, in world units relative to the entity's feet.
const (
	ForwardRange = 200.0
	SideRange    = 200.0
	DownRange    = 300.0

	KneeHeight  = 50.0
	WaistHeight = 90.0
	ChestHeight = 140.0

	// blocked.forward when the waist probe hits closer than this.
	NearThreshold = 100.0

	// Fallback capsule half-height when the source does not report one.
	DefaultHalfHeight = 88.0
)

// StateSource exposes the controlled entity's pose for snapshotting.
type StateSource interface {
	Name() string
	Class() string
	Position() [3]float64 // entity center
	Rotation() (yaw, pitch, roll float64)
	Velocity() [3]float64
	MovementMode() string
	IsFalling() bool
	IsCrouched() bool
	HalfHeight() float64
}

// Prober answers directional proximity queries: the distance from start
// along dir to the nearest obstruction, or maxRange when nothing is hit
// within range.
type Prober interface {
	ProbeDistance(start, dir [3]float64, maxRange float64) float64
}

// Build assembles a state document from the current entity pose and six
// directional probes (forward at knee/waist/chest, left and right at waist,
// straight down). src may be nil when no entity is bound; the document then
// carries only the timestamp and empty sections.
func Build(src StateSource, prober Prober, now time.Time) protocol.StateDoc {
	doc := protocol.StateDoc{
		TS: float64(now.UnixNano()) / float64(time.Second),
	}
	if src == nil {
		return doc
	}

	doc.Pawn = protocol.PawnInfo{Name: src.Name(), Class: src.Class()}

	pos := src.Position()
	doc.Pos = &pos

	yaw, pitch, roll := src.Rotation()
	doc.Rot = &protocol.RotInfo{Yaw: yaw, Pitch: pitch, Roll: roll}

	vel := src.Velocity()
	doc.Vel = &vel
	speed := math.Sqrt(vel[0]*vel[0] + vel[1]*vel[1] + vel[2]*vel[2])
	doc.Speed = &speed

	doc.Move = protocol.MoveInfo{
		Mode:       src.MovementMode(),
		IsFalling:  src.IsFalling(),
		IsCrouched: src.IsCrouched(),
	}

	if prober != nil {
		doc.Trace = traces(src, prober, pos, yaw)
	}
	doc.Blocked.Forward = doc.Trace.Forward.Waist > 0 && doc.Trace.Forward.Waist < NearThreshold

	return doc
}

func traces(src StateSource, prober Prober, pos [3]float64, yawDeg float64) protocol.TraceInfo {
	halfHeight := src.HalfHeight()
	if halfHeight <= 0 {
		halfHeight = DefaultHalfHeight
	}

	yaw := yawDeg * math.Pi / 180
	fwd := [3]float64{math.Cos(yaw), math.Sin(yaw), 0}
	right := [3]float64{-math.Sin(yaw), math.Cos(yaw), 0}
	left := [3]float64{-right[0], -right[1], 0}
	down := [3]float64{0, 0, -1}

	at := func(height float64) [3]float64 {
		return [3]float64{pos[0], pos[1], pos[2] + height - halfHeight}
	}
	kneeStart := at(KneeHeight)
	waistStart := at(WaistHeight)
	chestStart := at(ChestHeight)

	return protocol.TraceInfo{
		Forward: protocol.ForwardTraces{
			Knee:  prober.ProbeDistance(kneeStart, fwd, ForwardRange),
			Waist: prober.ProbeDistance(waistStart, fwd, ForwardRange),
			Chest: prober.ProbeDistance(chestStart, fwd, ForwardRange),
		},
		Left:  protocol.SideTrace{Waist: prober.ProbeDistance(waistStart, left, SideRange)},
		Right: protocol.SideTrace{Waist: prober.ProbeDistance(waistStart, right, SideRange)},
		Down:  protocol.DownTrace{Dist: prober.ProbeDistance(pos, down, DownRange)},
	}
}
