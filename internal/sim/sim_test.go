package sim

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestCharacter_WalkFollowsYaw(t *testing.T) {
	c := NewCharacter("bot", 0, 0)
	scene := NewScene()

	c.AddMovementInput(1, 0)
	c.Step(scene, 0.5)

	pos := c.Position()
	if math.Abs(pos[0]-DefaultSpeed*0.5) > 1e-6 || math.Abs(pos[1]) > 1e-6 {
		t.Fatalf("pos = %v, want (%v, 0)", pos, DefaultSpeed*0.5)
	}

	// Quarter turn, then forward again moves along +y.
	c.AddYawPitchInput(90, 0)
	c.AddMovementInput(1, 0)
	c.Step(scene, 0.5)
	pos = c.Position()
	if math.Abs(pos[1]-DefaultSpeed*0.5) > 1e-6 {
		t.Fatalf("pos after turn = %v", pos)
	}
}

func TestCharacter_InputConsumedPerStep(t *testing.T) {
	c := NewCharacter("bot", 0, 0)
	c.AddMovementInput(1, 0)
	c.Step(nil, 0.1)
	x1 := c.Position()[0]

	// No new input: the pawn stops.
	c.Step(nil, 0.1)
	if c.Position()[0] != x1 {
		t.Fatalf("pawn kept moving without input: %v -> %v", x1, c.Position()[0])
	}
}

func TestCharacter_JumpAndLand(t *testing.T) {
	c := NewCharacter("bot", 0, 0)
	scene := NewScene()

	c.Jump()
	c.Step(scene, 1.0/30)
	if !c.IsFalling() || c.Position()[2] <= HalfHeight {
		t.Fatalf("takeoff failed: z=%v falling=%v", c.Position()[2], c.IsFalling())
	}
	if c.MovementMode() != "Falling" {
		t.Fatalf("mode = %q", c.MovementMode())
	}

	// A mid-air jump is ignored.
	c.Jump()
	c.Step(scene, 1.0/30)
	if c.Velocity()[2] >= JumpZVelocity {
		t.Fatalf("double jump fired")
	}

	for i := 0; i < 300 && c.IsFalling(); i++ {
		c.Step(scene, 1.0/30)
	}
	if c.IsFalling() {
		t.Fatal("never landed")
	}
	if got := c.Position()[2]; math.Abs(got-HalfHeight) > 1e-6 {
		t.Fatalf("landed at z=%v, want %v", got, HalfHeight)
	}
	if c.MovementMode() != "Walking" {
		t.Fatalf("mode after landing = %q", c.MovementMode())
	}
}

func TestCharacter_WallStopsHorizontalMove(t *testing.T) {
	wall := Box{Min: [3]float64{100, -200, 0}, Max: [3]float64{130, 200, 300}}
	scene := NewScene(wall)
	c := NewCharacter("bot", 80, 0)

	c.AddMovementInput(1, 0)
	c.Step(scene, 1.0) // would travel 600 into the wall
	if got := c.Position()[0]; got != 80 {
		t.Fatalf("walked through wall to x=%v", got)
	}
}

func TestCharacter_SprintSpeedApplies(t *testing.T) {
	c := NewCharacter("bot", 0, 0)
	c.SetMaxWalkSpeed(1000)
	c.AddMovementInput(1, 0)
	c.Step(nil, 1.0)
	if got := c.Position()[0]; math.Abs(got-1000) > 1e-6 {
		t.Fatalf("x = %v, want 1000", got)
	}
	c.SetMaxWalkSpeed(0) // ignored
	if c.MaxWalkSpeed() != 1000 {
		t.Fatalf("zero speed accepted")
	}
}

func TestScene_ProbeDistance(t *testing.T) {
	wall := Box{Min: [3]float64{150, -50, 0}, Max: [3]float64{180, 50, 200}}
	scene := NewScene(wall)

	fwd := [3]float64{1, 0, 0}
	if got := scene.ProbeDistance([3]float64{100, 0, 90}, fwd, 200); math.Abs(got-50) > 1e-9 {
		t.Fatalf("forward probe = %v, want 50", got)
	}
	// Above the wall: clear.
	if got := scene.ProbeDistance([3]float64{100, 0, 250}, fwd, 200); got != 200 {
		t.Fatalf("high probe = %v, want max range", got)
	}
	// Down probe hits the ground plane.
	if got := scene.ProbeDistance([3]float64{0, 0, 88}, [3]float64{0, 0, -1}, 300); math.Abs(got-88) > 1e-9 {
		t.Fatalf("down probe = %v, want 88", got)
	}
}

func TestScene_FloorUnder(t *testing.T) {
	step := Box{Min: [3]float64{-50, -50, 0}, Max: [3]float64{50, 50, 40}}
	scene := NewScene(step)
	if got := scene.FloorUnder(0, 0, 60); got != 40 {
		t.Fatalf("floor = %v, want box top 40", got)
	}
	if got := scene.FloorUnder(500, 500, 60); got != 0 {
		t.Fatalf("floor off the box = %v, want 0", got)
	}
	// Feet below the box top: the box is a wall, not a floor.
	if got := scene.FloorUnder(0, 0, 10); got != 0 {
		t.Fatalf("floor with feet below top = %v, want 0", got)
	}
}

func TestCapturer_WritesPNG(t *testing.T) {
	scene := NewScene(Box{Min: [3]float64{100, -50, 0}, Max: [3]float64{200, 50, 100}})
	c := NewCharacter("bot", 0, 0)
	shooter := NewCapturer(scene, c)

	path := filepath.Join(t.TempDir(), "shots", "view.png")
	if err := shooter.RequestScreenshot(path, true); err != nil {
		t.Fatalf("RequestScreenshot: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(b) < 8 || string(b[1:4]) != "PNG" {
		t.Fatalf("not a PNG file")
	}
}
