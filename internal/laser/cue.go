package laser

import "math"

// CueItem is one node in a cue tree: either a Preset leaf or a Group of
// child items. The interface is sealed; rendering switches exhaustively
// over the two concrete kinds.
type CueItem interface {
	isCueItem()
}

// Preset is a leaf cue item: a generated shape identified by PresetID,
// parameterized by Params, post-processed by its own effect chain.
type Preset struct {
	PresetID string
	Params   map[string]float64
	Effects  EffectChain
	Enabled  bool
}

func (Preset) isCueItem() {}

// Group is an ordered collection of child items rendered into one sub-frame,
// post-processed as a whole by the group's effect chain.
type Group struct {
	Items   []CueItem
	Effects EffectChain
	Enabled bool
}

func (Group) isCueItem() {}

// CueChain is the ordered list of top-level items assigned to one trigger
// cell (an implicit root group), with an optional destination zone tag.
type CueChain struct {
	Items []CueItem
	Zone  string
}

// Empty reports whether the chain holds no items.
func (c CueChain) Empty() bool {
	return len(c.Items) == 0
}

// EffectInstance configures one effect within a chain. Mods attaches
// time-varying modulators to named parameters; a modulated parameter is the
// base value from Params plus the modulator evaluated at beat time.
type EffectInstance struct {
	EffectID string
	Params   map[string]float64
	Mods     map[string]Modulator
	Enabled  bool
}

// EffectChain is an ordered list of effects applied to a frame in strict
// index order. A chain with Active false is skipped entirely.
type EffectChain struct {
	Effects []EffectInstance
	Active  bool
}

// Empty reports whether applying the chain would be a no-op.
func (c EffectChain) Empty() bool {
	if !c.Active {
		return true
	}
	for _, e := range c.Effects {
		if e.Enabled {
			return false
		}
	}
	return true
}

// EnabledCount returns the number of effects the chain would apply.
func (c EffectChain) EnabledCount() int {
	if !c.Active {
		return 0
	}
	n := 0
	for _, e := range c.Effects {
		if e.Enabled {
			n++
		}
	}
	return n
}

// Modulator shapes.
const (
	ModSine   = "sine"
	ModSaw    = "saw"
	ModSquare = "square"
)

// Modulator is a periodic function driving an effect parameter, evaluated
// against accumulated (phase-corrected) beat time so animation speed follows
// tempo.
type Modulator struct {
	Shape     string
	FreqBeats float64 // cycles per beat
	Depth     float64
	Phase     float64 // cycles
}

// Eval returns the modulator value at the given beat time.
func (m Modulator) Eval(beats float64) float64 {
	t := beats*m.FreqBeats + m.Phase
	frac := t - math.Floor(t)
	switch m.Shape {
	case ModSaw:
		return m.Depth * frac
	case ModSquare:
		if frac < 0.5 {
			return m.Depth
		}
		return 0
	default:
		return m.Depth * math.Sin(2*math.Pi*t)
	}
}
