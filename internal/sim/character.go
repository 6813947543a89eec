package sim

import "math"

// Movement tuning, in world units (centimeters) and degrees.
const (
	Gravity       = 980.0 // cm/s^2
	JumpZVelocity = 420.0 // cm/s
	DefaultSpeed  = 600.0 // cm/s
	HalfHeight    = 88.0  // capsule half-height

	maxPitch = 89.0
)

// Character is the controllable pawn. All methods must be called from the
// frame-loop goroutine; input mutators accumulate until the next Step.
type Character struct {
	name  string
	class string

	pos   [3]float64 // capsule center
	yaw   float64    // degrees
	pitch float64    // degrees
	vel   [3]float64

	maxWalkSpeed float64
	falling      bool

	// accumulated since the last Step
	wishMove   [2]float64 // forward, right
	jumpQueued bool
}

// NewCharacter places a pawn standing on the floor at the given x/y.
func NewCharacter(name string, x, y float64) *Character {
	return &Character{
		name:         name,
		class:        "SimCharacter",
		pos:          [3]float64{x, y, HalfHeight},
		maxWalkSpeed: DefaultSpeed,
	}
}

func (c *Character) AddMovementInput(forward, right float64) {
	c.wishMove[0] += forward
	c.wishMove[1] += right
}

func (c *Character) AddYawPitchInput(yawDeg, pitchDeg float64) {
	c.yaw = math.Mod(c.yaw+yawDeg, 360)
	c.pitch = clampf(c.pitch+pitchDeg, -maxPitch, maxPitch)
}

// Jump queues a takeoff; it only fires if the pawn is grounded at Step time.
func (c *Character) Jump() { c.jumpQueued = true }

func (c *Character) SetMaxWalkSpeed(speed float64) {
	if speed > 0 {
		c.maxWalkSpeed = speed
	}
}

// Step advances the pawn by dt seconds against the scene: consume the
// accumulated input, integrate gravity, land on the floor or box tops.
func (c *Character) Step(scene *Scene, dt float64) {
	if dt <= 0 {
		return
	}

	// Horizontal velocity follows the wish direction directly; the pawn has
	// no inertia on the ground plane.
	wf, wr := c.wishMove[0], c.wishMove[1]
	c.wishMove = [2]float64{}
	if n := math.Hypot(wf, wr); n > 1 {
		wf, wr = wf/n, wr/n
	}
	yawRad := c.yaw * math.Pi / 180
	fwd := [2]float64{math.Cos(yawRad), math.Sin(yawRad)}
	right := [2]float64{-math.Sin(yawRad), math.Cos(yawRad)}
	c.vel[0] = (fwd[0]*wf + right[0]*wr) * c.maxWalkSpeed
	c.vel[1] = (fwd[1]*wf + right[1]*wr) * c.maxWalkSpeed

	if c.jumpQueued {
		c.jumpQueued = false
		if !c.falling {
			c.vel[2] = JumpZVelocity
			c.falling = true
		}
	}
	if c.falling {
		c.vel[2] -= Gravity * dt
	}

	next := [3]float64{
		c.pos[0] + c.vel[0]*dt,
		c.pos[1] + c.vel[1]*dt,
		c.pos[2] + c.vel[2]*dt,
	}

	// Walk into a box: cancel the horizontal move, keep the vertical one.
	if scene != nil && scene.Occupied([3]float64{next[0], next[1], c.pos[2]}, HalfHeight) {
		next[0], next[1] = c.pos[0], c.pos[1]
		c.vel[0], c.vel[1] = 0, 0
	}

	floor := 0.0
	if scene != nil {
		floor = scene.FloorUnder(next[0], next[1], c.pos[2]-HalfHeight)
	}
	if next[2]-HalfHeight <= floor && c.vel[2] <= 0 {
		next[2] = floor + HalfHeight
		c.vel[2] = 0
		c.falling = false
	} else if next[2]-HalfHeight > floor+1e-6 {
		c.falling = true
	}

	c.pos = next
}

func (c *Character) Name() string  { return c.name }
func (c *Character) Class() string { return c.class }

func (c *Character) Position() [3]float64 { return c.pos }

func (c *Character) Rotation() (yaw, pitch, roll float64) {
	return c.yaw, c.pitch, 0
}

func (c *Character) Velocity() [3]float64 { return c.vel }

func (c *Character) MovementMode() string {
	if c.falling {
		return "Falling"
	}
	return "Walking"
}

func (c *Character) IsFalling() bool  { return c.falling }
func (c *Character) IsCrouched() bool { return false }

func (c *Character) HalfHeight() float64 { return HalfHeight }

// MaxWalkSpeed reports the current speed cap.
func (c *Character) MaxWalkSpeed() float64 { return c.maxWalkSpeed }

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
