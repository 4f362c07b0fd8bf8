package render

import (
	"math"
	"testing"
	"time"

	"laserd/internal/laser"
	"laserd/internal/timing"
)

func onePoint() []laser.Point {
	return []laser.Point{{X: 0.5, Y: 0, R: 1, G: 0.8, B: 0.6}}
}

func TestEngine_unknownEffectFailsChain(t *testing.T) {
	e := NewEngine()
	chain := laser.EffectChain{
		Active:  true,
		Effects: []laser.EffectInstance{{EffectID: "nonsense", Enabled: true}},
	}
	if _, err := e.Apply(onePoint(), chain, 0, 120, time.Time{}, timing.Context{}); err == nil {
		t.Error("expected error for unknown effect")
	}
}

func TestEngine_inputNotMutated(t *testing.T) {
	e := NewEngine()
	in := onePoint()
	chain := laser.EffectChain{
		Active: true,
		Effects: []laser.EffectInstance{{
			EffectID: "brightness",
			Enabled:  true,
			Params:   map[string]float64{"level": 0.5},
		}},
	}

	out, err := e.Apply(in, chain, 0, 120, time.Time{}, timing.Context{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if in[0].R != 1 {
		t.Errorf("input mutated: %+v", in[0])
	}
	if math.Abs(out[0].R-0.5) > 1e-9 {
		t.Errorf("brightness not applied: %+v", out[0])
	}
}

func TestEngine_disabledInstanceSkipped(t *testing.T) {
	e := NewEngine()
	chain := laser.EffectChain{
		Active: true,
		Effects: []laser.EffectInstance{
			{EffectID: "brightness", Params: map[string]float64{"level": 0}},
			{EffectID: "tint", Enabled: true, Params: map[string]float64{"r": 0.5, "g": 1, "b": 1}},
		},
	}

	out, err := e.Apply(onePoint(), chain, 0, 120, time.Time{}, timing.Context{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if math.Abs(out[0].R-0.5) > 1e-9 {
		t.Errorf("enabled tint should halve red: %+v", out[0])
	}
	if out[0].R == 0 {
		t.Error("disabled brightness must not apply")
	}
}

func TestEngine_chainOrderIsIndexOrder(t *testing.T) {
	e := NewEngine()
	// scale(2) then scale(0.25) is 0.5x overall; the reverse would clamp
	// differently at the first step, so order is observable.
	chain := laser.EffectChain{
		Active: true,
		Effects: []laser.EffectInstance{
			{EffectID: "scale", Enabled: true, Params: map[string]float64{"factor": 2}},
			{EffectID: "scale", Enabled: true, Params: map[string]float64{"factor": 0.25}},
		},
	}

	in := []laser.Point{{X: 0.4, Y: 0, R: 1}}
	out, err := e.Apply(in, chain, 0, 120, time.Time{}, timing.Context{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if math.Abs(out[0].X-0.2) > 1e-9 {
		t.Errorf("X = %v, want 0.2", out[0].X)
	}
}

func TestEngine_strobeBlanksOffPhase(t *testing.T) {
	e := NewEngine()
	chain := laser.EffectChain{
		Active: true,
		Effects: []laser.EffectInstance{{
			EffectID: "strobe",
			Enabled:  true,
			Params:   map[string]float64{"freq": 1, "duty": 0.5},
		}},
	}

	t.Run("on_phase", func(t *testing.T) {
		out, err := e.Apply(onePoint(), chain, 0, 120, time.Time{}, timing.Context{EffectiveBeats: 0.25})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if out[0].Blanked() {
			t.Error("point should be visible during the on phase")
		}
	})

	t.Run("off_phase", func(t *testing.T) {
		out, err := e.Apply(onePoint(), chain, 0, 120, time.Time{}, timing.Context{EffectiveBeats: 0.75})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if !out[0].Blanked() {
			t.Errorf("point should be blanked during the off phase: %+v", out[0])
		}
	})
}

func TestEngine_modulatedParameter(t *testing.T) {
	e := NewEngine()
	chain := laser.EffectChain{
		Active: true,
		Effects: []laser.EffectInstance{{
			EffectID: "brightness",
			Enabled:  true,
			Params:   map[string]float64{"level": 0.5},
			Mods: map[string]laser.Modulator{
				"level": {Shape: laser.ModSine, FreqBeats: 1, Depth: 0.5},
			},
		}},
	}

	// At a quarter beat the sine modulator peaks: level = 0.5 + 0.5 = 1.
	out, err := e.Apply(onePoint(), chain, 0, 120, time.Time{}, timing.Context{EffectiveBeats: 0.25})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if math.Abs(out[0].R-1) > 1e-9 {
		t.Errorf("modulated brightness: R = %v, want 1", out[0].R)
	}

	// At zero beats the modulator contributes nothing: level = 0.5.
	out, err = e.Apply(onePoint(), chain, 0, 120, time.Time{}, timing.Context{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if math.Abs(out[0].R-0.5) > 1e-9 {
		t.Errorf("unmodulated brightness: R = %v, want 0.5", out[0].R)
	}
}

func TestEngine_deterministic(t *testing.T) {
	e := NewEngine()
	chain := laser.EffectChain{
		Active: true,
		Effects: []laser.EffectInstance{{
			EffectID: "rotate",
			Enabled:  true,
			Params:   map[string]float64{"speed": 0.25},
		}},
	}
	tc := timing.Context{EffectiveBeats: 1.5}

	a, err := e.Apply(onePoint(), chain, 100, 120, time.Time{}, tc)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	b, err := e.Apply(onePoint(), chain, 100, 120, time.Time{}, tc)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if a[0] != b[0] {
		t.Errorf("identical inputs produced different outputs: %+v vs %+v", a[0], b[0])
	}
}
