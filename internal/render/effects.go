package render

import (
	"fmt"
	"math"
	"time"

	"laserd/internal/laser"
	"laserd/internal/timing"
)

// EffectEngine transforms a frame according to an effect chain. Application
// is copy-based: implementations must not mutate the input slice, and the
// returned slice is freshly allocated whenever any enabled effect applies.
// Implementations are deterministic for identical inputs; per-effect
// modulators are evaluated against the timing context's EffectiveBeats.
type EffectEngine interface {
	Apply(points []laser.Point, chain laser.EffectChain, elapsedMs, bpm float64, triggerTime time.Time, tc timing.Context) ([]laser.Point, error)
}

// Engine is the built-in effect engine. Effects are applied in strict chain
// order; an unknown effect id fails the whole chain invocation so the caller
// can fall back to the pre-effect frame.
type Engine struct{}

// NewEngine returns the built-in effect engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Apply implements EffectEngine.
func (e *Engine) Apply(points []laser.Point, chain laser.EffectChain, elapsedMs, bpm float64, triggerTime time.Time, tc timing.Context) ([]laser.Point, error) {
	if chain.Empty() || len(points) == 0 {
		return points, nil
	}

	out := make([]laser.Point, len(points))
	copy(out, points)

	for _, inst := range chain.Effects {
		if !inst.Enabled {
			continue
		}
		if err := e.applyOne(out, inst, elapsedMs, tc); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *Engine) applyOne(pts []laser.Point, inst laser.EffectInstance, elapsedMs float64, tc timing.Context) error {
	switch inst.EffectID {
	case "brightness":
		level := clampParam(effectParam(inst, "level", 1, tc), 0, 1)
		for i := range pts {
			pts[i].R *= level
			pts[i].G *= level
			pts[i].B *= level
		}
	case "strobe":
		freq := clampParam(effectParam(inst, "freq", 1, tc), 0.01, 64) // cycles per beat
		duty := clampParam(effectParam(inst, "duty", 0.5, tc), 0, 1)
		phase := tc.EffectiveBeats * freq
		if phase-math.Floor(phase) >= duty {
			for i := range pts {
				pts[i] = pts[i].Blank()
			}
		}
	case "rotate":
		// angle in revolutions, plus tempo-locked spin in revolutions per beat
		angle := effectParam(inst, "angle", 0, tc)
		angle += effectParam(inst, "speed", 0, tc) * tc.EffectiveBeats
		sin, cos := math.Sincos(2 * math.Pi * angle)
		for i := range pts {
			x, y := pts[i].X, pts[i].Y
			pts[i].X = x*cos - y*sin
			pts[i].Y = x*sin + y*cos
			pts[i] = pts[i].Clamp()
		}
	case "scale":
		factor := clampParam(effectParam(inst, "factor", 1, tc), 0, 4)
		for i := range pts {
			pts[i].X *= factor
			pts[i].Y *= factor
			pts[i] = pts[i].Clamp()
		}
	case "tint":
		r := clampParam(effectParam(inst, "r", 1, tc), 0, 1)
		g := clampParam(effectParam(inst, "g", 1, tc), 0, 1)
		b := clampParam(effectParam(inst, "b", 1, tc), 0, 1)
		for i := range pts {
			pts[i].R *= r
			pts[i].G *= g
			pts[i].B *= b
		}
	default:
		return fmt.Errorf("render: unknown effect %q", inst.EffectID)
	}
	return nil
}

// effectParam resolves a parameter: base value from the instance params (or
// the effect default) plus the named modulator evaluated at beat time.
func effectParam(inst laser.EffectInstance, key string, def float64, tc timing.Context) float64 {
	v := def
	if p, ok := inst.Params[key]; ok {
		v = p
	}
	if m, ok := inst.Mods[key]; ok {
		v += m.Eval(tc.EffectiveBeats)
	}
	return v
}

func clampParam(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
