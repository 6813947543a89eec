package sim

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
)

const (
	captureSize = 512    // output pixels, square
	captureSpan = 2000.0 // world units covered edge to edge
)

// Capturer renders top-down PNG snapshots of the scene around a pawn.
type Capturer struct {
	scene *Scene
	pawn  *Character
}

func NewCapturer(scene *Scene, pawn *Character) *Capturer {
	return &Capturer{scene: scene, pawn: pawn}
}

// RequestScreenshot renders the current view and writes it to path,
// creating parent directories as needed.
func (c *Capturer) RequestScreenshot(path string, showUI bool) error {
	img := image.NewRGBA(image.Rect(0, 0, captureSize, captureSize))

	var center [3]float64
	if c.pawn != nil {
		center = c.pawn.Position()
	}
	scale := captureSize / captureSpan
	toPx := func(wx, wy float64) (int, int) {
		// World x is up on screen, world y is right.
		px := captureSize/2 + int((wy-center[1])*scale)
		py := captureSize/2 - int((wx-center[0])*scale)
		return px, py
	}

	fillRect(img, 0, 0, captureSize, captureSize, color.RGBA{34, 51, 34, 255})

	if c.scene != nil {
		wall := color.RGBA{120, 120, 128, 255}
		for _, b := range c.scene.Boxes() {
			x0, y0 := toPx(b.Min[0], b.Min[1])
			x1, y1 := toPx(b.Max[0], b.Max[1])
			fillRect(img, min(x0, x1), min(y0, y1), max(x0, x1), max(y0, y1), wall)
		}
	}

	if c.pawn != nil {
		px, py := toPx(center[0], center[1])
		fillRect(img, px-3, py-3, px+3, py+3, color.RGBA{220, 40, 40, 255})
		yaw, _, _ := c.pawn.Rotation()
		rad := yaw * math.Pi / 180
		for d := 0; d < 12; d++ {
			fx := center[0] + math.Cos(rad)*float64(d)*captureSpan/captureSize
			fy := center[1] + math.Sin(rad)*float64(d)*captureSpan/captureSize
			lx, ly := toPx(fx, fy)
			img.Set(lx, ly, color.RGBA{255, 200, 60, 255})
		}
	}

	if showUI {
		hud := color.RGBA{255, 255, 255, 255}
		fillRect(img, 0, 0, captureSize, 2, hud)
		fillRect(img, 0, captureSize-2, captureSize, captureSize, hud)
		fillRect(img, captureSize/2-8, captureSize/2, captureSize/2+8, captureSize/2+1, hud)
		fillRect(img, captureSize/2, captureSize/2-8, captureSize/2+1, captureSize/2+8, hud)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("screenshot dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("screenshot file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode screenshot: %w", err)
	}
	return nil
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	bounds := img.Bounds()
	for y := max(y0, bounds.Min.Y); y < min(y1, bounds.Max.Y); y++ {
		for x := max(x0, bounds.Min.X); x < min(x1, bounds.Max.X); x++ {
			img.SetRGBA(x, y, c)
		}
	}
}
