package sim

import "math"

// Box is an axis-aligned obstacle.
type Box struct {
	Min [3]float64
	Max [3]float64
}

func (b Box) contains(p [3]float64) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// rayHit returns the entry distance of a ray into the box via the slab
// method, or -1 when the ray misses it.
func (b Box) rayHit(start, dir [3]float64) float64 {
	tMin, tMax := 0.0, math.Inf(1)
	for i := 0; i < 3; i++ {
		if math.Abs(dir[i]) < 1e-12 {
			if start[i] < b.Min[i] || start[i] > b.Max[i] {
				return -1
			}
			continue
		}
		t1 := (b.Min[i] - start[i]) / dir[i]
		t2 := (b.Max[i] - start[i]) / dir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return -1
		}
	}
	return tMin
}

// Scene is the static world: a ground plane at z=0 plus axis-aligned boxes.
// It is read-only after construction and safe for concurrent probes.
type Scene struct {
	boxes []Box
}

// NewScene builds a scene from its obstacles.
func NewScene(boxes ...Box) *Scene {
	return &Scene{boxes: boxes}
}

// ProbeDistance casts a ray and reports the distance to the nearest
// obstruction, or maxRange when nothing is hit within range.
func (s *Scene) ProbeDistance(start, dir [3]float64, maxRange float64) float64 {
	best := maxRange

	// Ground plane at z=0, hit only from above.
	if dir[2] < 0 && start[2] > 0 {
		if t := start[2] / -dir[2]; t < best {
			best = t
		}
	}

	for _, b := range s.boxes {
		if t := b.rayHit(start, dir); t >= 0 && t < best {
			best = t
		}
	}
	return best
}

// Occupied reports whether a capsule centered at p intersects any box. The
// capsule is approximated by its center and the two points half-height above
// and below it.
func (s *Scene) Occupied(p [3]float64, halfHeight float64) bool {
	lo := [3]float64{p[0], p[1], p[2] - halfHeight + 1}
	hi := [3]float64{p[0], p[1], p[2] + halfHeight - 1}
	for _, b := range s.boxes {
		if b.contains(p) || b.contains(lo) || b.contains(hi) {
			return true
		}
	}
	return false
}

// FloorUnder reports the highest walkable surface at (x, y) that is not
// above feetZ: a box top, or the ground plane.
func (s *Scene) FloorUnder(x, y, feetZ float64) float64 {
	floor := 0.0
	for _, b := range s.boxes {
		if x >= b.Min[0] && x <= b.Max[0] && y >= b.Min[1] && y <= b.Max[1] {
			if b.Max[2] <= feetZ+1e-6 && b.Max[2] > floor {
				floor = b.Max[2]
			}
		}
	}
	return floor
}

// Boxes exposes the obstacle list for rendering.
func (s *Scene) Boxes() []Box { return s.boxes }
