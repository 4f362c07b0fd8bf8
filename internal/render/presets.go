package render

import (
	"math"
	"sync"

	"laserd/internal/laser"
)

// PresetFunc generates the base point sequence for a preset at the item's
// local elapsed time. Generators are pure: same parameters and time, same
// points.
type PresetFunc func(params map[string]float64, elapsedMs float64) []laser.Point

// Registry maps preset ids to generators.
type Registry struct {
	mu      sync.RWMutex
	presets map[string]PresetFunc
}

// NewRegistry returns an empty preset registry.
func NewRegistry() *Registry {
	return &Registry{presets: make(map[string]PresetFunc)}
}

// Register adds or replaces a generator for the given preset id.
func (r *Registry) Register(id string, fn PresetFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presets[id] = fn
}

// Get looks up the generator for a preset id.
func (r *Registry) Get(id string) (PresetFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.presets[id]
	return fn, ok
}

// DefaultRegistry returns a registry with the built-in procedural shapes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("circle", presetCircle)
	r.Register("line", presetLine)
	r.Register("square", presetSquare)
	r.Register("wave", presetWave)
	r.Register("beam", presetBeam)
	return r
}

// Shared preset parameters: "points" (sample count), "size" (half extent),
// "x"/"y" (center offset), "r"/"g"/"b" (color), "speed" (revolutions per
// second of shape-local rotation or travel).
func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

func presetColor(params map[string]float64) (r, g, b float64) {
	return param(params, "r", 1), param(params, "g", 1), param(params, "b", 1)
}

func presetCircle(params map[string]float64, elapsedMs float64) []laser.Point {
	n := int(param(params, "points", 96))
	if n < 3 {
		n = 3
	}
	size := param(params, "size", 0.5)
	cx, cy := param(params, "x", 0), param(params, "y", 0)
	r, g, b := presetColor(params)
	spin := 2 * math.Pi * param(params, "speed", 0) * elapsedMs / 1000

	pts := make([]laser.Point, 0, n)
	for i := 0; i < n; i++ {
		a := spin + 2*math.Pi*float64(i)/float64(n)
		pts = append(pts, laser.Point{
			X: cx + size*math.Cos(a),
			Y: cy + size*math.Sin(a),
			R: r, G: g, B: b,
		}.Clamp())
	}
	return pts
}

func presetLine(params map[string]float64, elapsedMs float64) []laser.Point {
	n := int(param(params, "points", 32))
	if n < 2 {
		n = 2
	}
	size := param(params, "size", 0.8)
	cx, cy := param(params, "x", 0), param(params, "y", 0)
	r, g, b := presetColor(params)

	pts := make([]laser.Point, 0, n)
	for i := 0; i < n; i++ {
		t := 2*float64(i)/float64(n-1) - 1
		pts = append(pts, laser.Point{X: cx + size*t, Y: cy, R: r, G: g, B: b}.Clamp())
	}
	return pts
}

func presetSquare(params map[string]float64, elapsedMs float64) []laser.Point {
	perSide := int(param(params, "points", 64)) / 4
	if perSide < 2 {
		perSide = 2
	}
	size := param(params, "size", 0.5)
	cx, cy := param(params, "x", 0), param(params, "y", 0)
	r, g, b := presetColor(params)

	corners := [][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	pts := make([]laser.Point, 0, 4*perSide)
	for s := 0; s < 4; s++ {
		from, to := corners[s], corners[(s+1)%4]
		for i := 0; i < perSide; i++ {
			t := float64(i) / float64(perSide)
			pts = append(pts, laser.Point{
				X: cx + size*(from[0]+(to[0]-from[0])*t),
				Y: cy + size*(from[1]+(to[1]-from[1])*t),
				R: r, G: g, B: b,
			}.Clamp())
		}
	}
	return pts
}

func presetWave(params map[string]float64, elapsedMs float64) []laser.Point {
	n := int(param(params, "points", 64))
	if n < 2 {
		n = 2
	}
	size := param(params, "size", 0.8)
	amp := param(params, "amplitude", 0.3)
	cycles := param(params, "cycles", 2)
	cy := param(params, "y", 0)
	r, g, b := presetColor(params)
	travel := 2 * math.Pi * param(params, "speed", 0.5) * elapsedMs / 1000

	pts := make([]laser.Point, 0, n)
	for i := 0; i < n; i++ {
		t := 2*float64(i)/float64(n-1) - 1
		pts = append(pts, laser.Point{
			X: size * t,
			Y: cy + amp*math.Sin(cycles*math.Pi*t+travel),
			R: r, G: g, B: b,
		}.Clamp())
	}
	return pts
}

// presetBeam holds the scanner still at one position; the repeated samples
// control dwell time on the receiver.
func presetBeam(params map[string]float64, elapsedMs float64) []laser.Point {
	n := int(param(params, "points", 8))
	if n < 1 {
		n = 1
	}
	cx, cy := param(params, "x", 0), param(params, "y", 0)
	r, g, b := presetColor(params)

	pts := make([]laser.Point, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, laser.Point{X: cx, Y: cy, R: r, G: g, B: b}.Clamp())
	}
	return pts
}
