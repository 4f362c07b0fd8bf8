package laser

// Point is a single laser sample: a beam position and a color.
// Coordinates are normalized to [-1, 1] and color channels to [0, 1].
// A point with all color channels at zero is "blanked": the scanner moves
// there but the beam stays dark.
type Point struct {
	X, Y    float64
	R, G, B float64
}

// Blanked reports whether the point emits no visible light.
func (p Point) Blanked() bool {
	return p.R == 0 && p.G == 0 && p.B == 0
}

// Blank returns a copy of p with all color channels forced to zero.
func (p Point) Blank() Point {
	p.R, p.G, p.B = 0, 0, 0
	return p
}

// Clamp returns a copy of p with position and color clamped to their
// normalized ranges. Producers apply this at the boundary so downstream
// encoding never sees out-of-range samples.
func (p Point) Clamp() Point {
	p.X = clamp(p.X, -1, 1)
	p.Y = clamp(p.Y, -1, 1)
	p.R = clamp(p.R, 0, 1)
	p.G = clamp(p.G, 0, 1)
	p.B = clamp(p.B, 0, 1)
	return p
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

// Frame is an ordered sequence of points; slice order is drawing order.
type Frame struct {
	Points    []Point
	ElapsedMs float64
}

// Empty reports whether the frame has nothing to draw.
func (f Frame) Empty() bool {
	return len(f.Points) == 0
}

// AppendBlanked appends next to dst with a laser-safe transition: a blanked
// copy of dst's last point (switch the beam off in place) followed by a
// blanked copy of next's first point (relocate dark before re-illuminating).
// If either side is empty the corresponding blanking point is omitted.
// Joining is associative left to right, so folding a list of sub-frames with
// AppendBlanked yields the same result regardless of grouping.
func AppendBlanked(dst, next []Point) []Point {
	if len(next) == 0 {
		return dst
	}
	if len(dst) == 0 {
		return append(dst, next...)
	}
	dst = append(dst, dst[len(dst)-1].Blank())
	dst = append(dst, next[0].Blank())
	return append(dst, next...)
}

// ConcatFrames joins sub-frames left to right with blanking transitions.
func ConcatFrames(frames ...[]Point) []Point {
	var out []Point
	for _, f := range frames {
		out = AppendBlanked(out, f)
	}
	return out
}
