package render

import (
	"log/slog"
	"time"

	"laserd/internal/laser"
	"laserd/internal/platform/metrics"
	"laserd/internal/timing"
)

// ZoneFilter restricts which destination zones an output renders. An empty
// zone list shows all content; Bypass disables filtering regardless of the
// list.
type ZoneFilter struct {
	Zones  []string
	Bypass bool
}

// Matches reports whether a chain routed to zone passes the filter. zone may
// name a zone group; members resolves group names to member zones.
func (f ZoneFilter) Matches(zone string, members func(group string) []string) bool {
	if f.Bypass || len(f.Zones) == 0 {
		return true
	}
	resolved := []string{zone}
	if zone != "" && members != nil {
		if m := members(zone); len(m) > 0 {
			resolved = m
		}
	}
	for _, want := range f.Zones {
		for _, have := range resolved {
			if want == have {
				return true
			}
		}
	}
	return false
}

// StateProvider is the narrow read surface the assembler needs from the show
// state. Implementations must be safe for concurrent readers; the assembler
// never writes back.
type StateProvider interface {
	// ActiveChain returns the cue chain assigned to the given output target.
	ActiveChain(target string) (laser.CueChain, bool)
	Playing() bool
	TriggerTime() time.Time
	BPM() float64
	// GlobalEffects returns the union of active global effect toggles
	// flattened in a deterministic order.
	GlobalEffects() laser.EffectChain
	ZoneFilter(target string) ZoneFilter
	ZoneMembers(group string) []string
}

// Profile captures per-stage timing for one assembled frame.
type Profile struct {
	BaseRenderMicros   int64
	EffectsApplyMicros int64
	EffectCount        int
	PointCount         int
}

// Assembler orchestrates one render tick for one output target: resolve the
// active content, render the cue tree, apply the global effect chain, and
// emit the final frame with profiling data.
type Assembler struct {
	target   string
	state    StateProvider
	renderer *Renderer
	effects  EffectEngine
	acc      *timing.Accumulator
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewAssembler returns an assembler for the given output target.
// Metrics may be nil.
func NewAssembler(target string, state StateProvider, renderer *Renderer, effects EffectEngine, acc *timing.Accumulator, log *slog.Logger, m *metrics.Metrics) *Assembler {
	return &Assembler{
		target:   target,
		state:    state,
		renderer: renderer,
		effects:  effects,
		acc:      acc,
		log:      log,
		metrics:  m,
	}
}

// Accumulator exposes the assembler's timing accumulator for retrigger and
// resync control.
func (a *Assembler) Accumulator() *timing.Accumulator {
	return a.acc
}

// Assemble produces the frame for one tick. ok is false when there is
// nothing to draw: transport stopped, no chain assigned, zone filter
// mismatch, or an empty render.
func (a *Assembler) Assemble(now time.Time) (laser.Frame, Profile, bool) {
	a.acc.Tick(float64(now.UnixMilli()))

	chain, ok := a.state.ActiveChain(a.target)
	if !ok || !a.state.Playing() {
		return laser.Frame{}, Profile{}, false
	}
	if !a.state.ZoneFilter(a.target).Matches(chain.Zone, a.state.ZoneMembers) {
		return laser.Frame{}, Profile{}, false
	}

	trigger := a.state.TriggerTime()
	elapsedMs := float64(now.Sub(trigger)) / float64(time.Millisecond)
	bpm := a.state.BPM()
	tc := a.acc.Snapshot()

	baseStart := time.Now()
	base := a.renderer.RenderChain(chain, elapsedMs, bpm, trigger, tc)
	baseMicros := time.Since(baseStart).Microseconds()
	if len(base) == 0 {
		return laser.Frame{}, Profile{}, false
	}

	global := a.state.GlobalEffects()
	var effectsMicros int64
	if !global.Empty() {
		fxStart := time.Now()
		out, err := a.effects.Apply(base, global, elapsedMs, bpm, trigger, tc)
		if err != nil {
			a.log.Warn("global effect chain failed, keeping base frame",
				slog.String("target", a.target),
				slog.String("error", err.Error()))
			if a.metrics != nil {
				a.metrics.IncEffectErrors()
			}
		} else {
			base = out
		}
		effectsMicros = time.Since(fxStart).Microseconds()
	}

	frame := laser.Frame{Points: base, ElapsedMs: elapsedMs}
	profile := Profile{
		BaseRenderMicros:   baseMicros,
		EffectsApplyMicros: effectsMicros,
		EffectCount:        global.EnabledCount(),
		PointCount:         len(base),
	}
	return frame, profile, true
}
