package render

import (
	"log/slog"
	"time"

	"laserd/internal/laser"
	"laserd/internal/platform/metrics"
	"laserd/internal/timing"
)

// Renderer collapses a cue tree into one flat, persistence-of-vision-safe
// point sequence: disabled items are pruned, sibling sub-frames are joined
// with blanking transitions, and each node's effect chain is applied to its
// own sub-frame before the parent sees it.
type Renderer struct {
	presets *Registry
	effects EffectEngine
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewRenderer returns a renderer using the given preset registry and effect
// engine. Metrics may be nil (e.g. in tests).
func NewRenderer(presets *Registry, effects EffectEngine, log *slog.Logger, m *metrics.Metrics) *Renderer {
	return &Renderer{presets: presets, effects: effects, log: log, metrics: m}
}

// RenderChain renders all top-level items of the chain and concatenates the
// non-empty results with blanking transitions.
func (r *Renderer) RenderChain(chain laser.CueChain, elapsedMs, bpm float64, triggerTime time.Time, tc timing.Context) []laser.Point {
	var out []laser.Point
	for _, item := range chain.Items {
		out = laser.AppendBlanked(out, r.RenderItem(item, elapsedMs, bpm, triggerTime, tc))
	}
	return out
}

// RenderItem renders one cue item at the given local elapsed time.
func (r *Renderer) RenderItem(item laser.CueItem, elapsedMs, bpm float64, triggerTime time.Time, tc timing.Context) []laser.Point {
	switch v := item.(type) {
	case laser.Preset:
		if !v.Enabled {
			return nil
		}
		gen, ok := r.presets.Get(v.PresetID)
		if !ok {
			r.log.Warn("unknown preset", slog.String("preset", v.PresetID))
			return nil
		}
		pts := gen(v.Params, elapsedMs)
		if len(pts) == 0 {
			return nil
		}
		return r.applyEffects(pts, v.Effects, "preset:"+v.PresetID, elapsedMs, bpm, triggerTime, tc)

	case laser.Group:
		if !v.Enabled {
			return nil
		}
		var out []laser.Point
		for _, child := range v.Items {
			out = laser.AppendBlanked(out, r.RenderItem(child, elapsedMs, bpm, triggerTime, tc))
		}
		if len(out) == 0 {
			return nil
		}
		return r.applyEffects(out, v.Effects, "group", elapsedMs, bpm, triggerTime, tc)
	}
	return nil
}

// applyEffects runs the node's effect chain and fails open: on error the
// pre-effect points are returned so one bad effect never blanks the render.
func (r *Renderer) applyEffects(pts []laser.Point, chain laser.EffectChain, node string, elapsedMs, bpm float64, triggerTime time.Time, tc timing.Context) []laser.Point {
	if r.effects == nil || chain.Empty() {
		return pts
	}
	out, err := r.effects.Apply(pts, chain, elapsedMs, bpm, triggerTime, tc)
	if err != nil {
		r.log.Warn("effect chain failed, using unprocessed frame",
			slog.String("node", node),
			slog.String("error", err.Error()))
		if r.metrics != nil {
			r.metrics.IncEffectErrors()
		}
		return pts
	}
	return out
}
