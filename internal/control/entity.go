package control

// Entity is the capability surface a resolved frame is applied to. The host
// simulation supplies it; the control core never reaches into world state
// directly.
type Entity interface {
	// AddMovementInput feeds normalized forward/right input along the
	// entity's own forward and right directions.
	AddMovementInput(forward, right float64)

	// AddYawPitchInput applies a view rotation delta in degrees.
	AddYawPitchInput(yawDeg, pitchDeg float64)

	Jump()

	SetMaxWalkSpeed(speed float64)
}

// EntityProvider resolves the currently controlled entity. It may report
// none; every applicator pass re-queries it.
type EntityProvider interface {
	Current() (Entity, bool)
}

// EntityProviderFunc adapts a function to EntityProvider.
type EntityProviderFunc func() (Entity, bool)

func (f EntityProviderFunc) Current() (Entity, bool) { return f() }
