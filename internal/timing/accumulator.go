// Package timing tracks elapsed beat and wall time for animated parameters.
//
// The accumulator keeps advancing while playback is idle so modulators stay
// in motion, and approaches resynchronization targets exponentially instead
// of snapping, which avoids visible jumps in beat-locked animation.
package timing

import (
	"math"
	"sync"
)

// Context is a read-only snapshot of accumulated time passed into rendering.
// EffectiveBeats folds the phase-offset correction into the beat counter.
type Context struct {
	AccumulatedBeats float64
	AccumulatedMs    float64
	PhaseOffset      float64
	EffectiveBeats   float64
}

// maxDeltaMs guards against suspend/resume and other clock discontinuities;
// a tick delta above this resynchronizes the clock without accumulating.
const maxDeltaMs = 1000

// minResyncRate keeps the decay time constant away from zero.
const minResyncRate = 0.1

// Accumulator tracks elapsed beats/ms and a decaying phase-offset correction.
// Tick calls must be serialized by the owner; Snapshot and the setters are
// safe from any goroutine.
type Accumulator struct {
	mu         sync.Mutex
	bpm        float64
	resyncRate float64 // beats until ~63% convergence toward the phase target

	started     bool
	lastTickMs  float64
	beats       float64
	ms          float64
	phaseOffset float64
	phaseTarget float64
}

// NewAccumulator returns an accumulator at the given tempo. resyncRate is the
// time constant, in beats, of the exponential phase-offset approach.
func NewAccumulator(bpm, resyncRate float64) *Accumulator {
	return &Accumulator{bpm: bpm, resyncRate: resyncRate}
}

// SetBPM changes the tempo used for subsequent ticks.
func (a *Accumulator) SetBPM(bpm float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if bpm > 0 {
		a.bpm = bpm
	}
}

// BPM returns the current tempo.
func (a *Accumulator) BPM() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bpm
}

// Tick advances the accumulator to nowMs. The first call only arms the
// clock. A delta above maxDeltaMs updates the clock without accumulating,
// so a suspend/resume gap does not fast-forward animation.
func (a *Accumulator) Tick(nowMs float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		a.started = true
		a.lastTickMs = nowMs
		return
	}

	deltaMs := nowMs - a.lastTickMs
	if deltaMs > maxDeltaMs {
		a.lastTickMs = nowMs
		return
	}

	deltaBeats := deltaMs * a.bpm / 60000
	a.beats += deltaBeats
	a.ms += deltaMs

	decay := math.Exp(-deltaBeats / math.Max(minResyncRate, a.resyncRate))
	a.phaseOffset = a.phaseTarget + (a.phaseOffset-a.phaseTarget)*decay

	a.lastTickMs = nowMs
}

// Reset zeroes the accumulated counters. Used on explicit retrigger.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.beats = 0
	a.ms = 0
}

// Resync sets a new phase-offset target without touching the accumulated
// counters. The offset converges exponentially toward the target over
// subsequent ticks (~63% after resyncRate beats).
func (a *Accumulator) Resync(target float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.phaseTarget = target
}

// Snapshot returns the current timing context.
func (a *Accumulator) Snapshot() Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Context{
		AccumulatedBeats: a.beats,
		AccumulatedMs:    a.ms,
		PhaseOffset:      a.phaseOffset,
		EffectiveBeats:   a.beats + a.phaseOffset,
	}
}
