package control

import (
	"log"
	"math"
)

// Axis sums below this magnitude are treated as zero input.
const negligibleAxis = 1e-4

// Applicator maps one resolved frame onto the controlled entity.
type Applicator struct {
	entities EntityProvider
	log      *log.Logger

	normalWalkSpeed float64
	sprintWalkSpeed float64
}

func NewApplicator(entities EntityProvider, normalWalkSpeed, sprintWalkSpeed float64, logger *log.Logger) *Applicator {
	return &Applicator{
		entities:        entities,
		log:             logger,
		normalWalkSpeed: normalWalkSpeed,
		sprintWalkSpeed: sprintWalkSpeed,
	}
}

// Apply pushes the frame's inputs onto the current entity. dt is the frame
// delta in seconds; look rates are deg/sec so the visual turn rate stays
// frame-rate independent. With no entity bound the frame is dropped with a
// log line and the loop carries on.
func (a *Applicator) Apply(f ResolvedFrame, dt float64) {
	e, ok := a.entities.Current()
	if !ok {
		if f.JumpCount > 0 || f.Sprint != nil || !nearlyZero(f.MoveAxis) || !nearlyZero(f.LookRate) {
			a.log.Printf("no controlled entity; dropping frame move=(%.2f,%.2f) look=(%.2f,%.2f) jumps=%d",
				f.MoveAxis[0], f.MoveAxis[1], f.LookRate[0], f.LookRate[1], f.JumpCount)
		}
		return
	}

	if !nearlyZero(f.MoveAxis) {
		e.AddMovementInput(f.MoveAxis[0], f.MoveAxis[1])
	}

	if !nearlyZero(f.LookRate) {
		e.AddYawPitchInput(f.LookRate[0]*dt, f.LookRate[1]*dt)
	}

	for i := 0; i < f.JumpCount; i++ {
		e.Jump()
	}

	if f.Sprint != nil {
		if *f.Sprint {
			e.SetMaxWalkSpeed(a.sprintWalkSpeed)
		} else {
			e.SetMaxWalkSpeed(a.normalWalkSpeed)
		}
	}
}

func nearlyZero(v [2]float64) bool {
	return math.Abs(v[0]) < negligibleAxis && math.Abs(v[1]) < negligibleAxis
}
