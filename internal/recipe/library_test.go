package recipe

import (
	"errors"
	"strings"
	"testing"
)

// --- Defaults ---

func TestDefaultsApplied(t *testing.T) {
	lib, err := LoadBytes([]byte(`{
		"blip": {"layers": [{"type": "osc", "freq_hz": 440}]}
	}`), false)
	if err != nil {
		t.Fatal(err)
	}
	spec, err := lib.Get("blip")
	if err != nil {
		t.Fatal(err)
	}
	if spec.DurationMS != DefaultDurationMS {
		t.Errorf("duration = %v, want %v", spec.DurationMS, DefaultDurationMS)
	}
	if spec.HeadroomDB != DefaultHeadroomDB {
		t.Errorf("headroom = %v, want %v", spec.HeadroomDB, DefaultHeadroomDB)
	}
	if spec.Loop {
		t.Error("loop should default to false")
	}
	layer := spec.Layers[0]
	if layer.Wave != WaveSine {
		t.Errorf("wave = %v, want sine", layer.Wave)
	}
	if layer.Amp != 1.0 {
		t.Errorf("amp = %v, want 1.0", layer.Amp)
	}
	env := layer.Env
	if env.AttackMS != DefaultAttackMS || env.DecayMS != DefaultDecayMS ||
		env.Sustain != DefaultSustain || env.ReleaseMS != DefaultReleaseMS {
		t.Errorf("env = %+v, want defaults", env)
	}
}

func TestLoopLengthDefaultsToDuration(t *testing.T) {
	lib, err := LoadBytes([]byte(`{
		"hum": {"duration_ms": 800, "loop": true,
			"layers": [{"type": "osc", "freq_hz": 110}]}
	}`), false)
	if err != nil {
		t.Fatal(err)
	}
	spec, _ := lib.Get("hum")
	if spec.LoopLengthMS != 800 {
		t.Errorf("loop_length_ms = %v, want 800", spec.LoopLengthMS)
	}
}

// --- Inheritance ---

const inheritSrc = `{
	"base": {
		"duration_ms": 300,
		"headroom_db": -9,
		"layers": [
			{"type": "osc", "freq_hz": 440},
			{"type": "noise", "lp_hz": 1000, "amp": 0.5}
		]
	},
	"child": {
		"extends": "base",
		"duration_ms": 120
	},
	"replaced": {
		"extends": "base",
		"layers": [{"type": "osc", "wave": "square", "freq_hz": 220}]
	},
	"grandchild": {
		"extends": "child",
		"headroom_db": -3
	}
}`

func TestChildInheritsUnsetFields(t *testing.T) {
	lib, err := LoadBytes([]byte(inheritSrc), false)
	if err != nil {
		t.Fatal(err)
	}
	child, _ := lib.Get("child")
	if child.DurationMS != 120 {
		t.Errorf("duration = %v, want 120 (overridden)", child.DurationMS)
	}
	if child.HeadroomDB != -9 {
		t.Errorf("headroom = %v, want -9 (inherited)", child.HeadroomDB)
	}
	if len(child.Layers) != 2 {
		t.Fatalf("layers = %d, want 2 (inherited)", len(child.Layers))
	}
}

func TestChildLayersReplaceBase(t *testing.T) {
	lib, err := LoadBytes([]byte(inheritSrc), false)
	if err != nil {
		t.Fatal(err)
	}
	spec, _ := lib.Get("replaced")
	if len(spec.Layers) != 1 {
		t.Fatalf("layers = %d, want 1 (replaced, not appended)", len(spec.Layers))
	}
	if spec.Layers[0].Wave != WaveSquare {
		t.Errorf("wave = %v, want square", spec.Layers[0].Wave)
	}
}

func TestInheritanceChain(t *testing.T) {
	lib, err := LoadBytes([]byte(inheritSrc), false)
	if err != nil {
		t.Fatal(err)
	}
	spec, _ := lib.Get("grandchild")
	if spec.DurationMS != 120 {
		t.Errorf("duration = %v, want 120 (from child)", spec.DurationMS)
	}
	if spec.HeadroomDB != -3 {
		t.Errorf("headroom = %v, want -3 (own)", spec.HeadroomDB)
	}
	if len(spec.Layers) != 2 {
		t.Errorf("layers = %d, want 2 (from base)", len(spec.Layers))
	}
}

func TestCycleReportsChain(t *testing.T) {
	_, err := LoadBytes([]byte(`{
		"a": {"extends": "b", "layers": [{"type": "osc", "freq_hz": 1}]},
		"b": {"extends": "c"},
		"c": {"extends": "a"}
	}`), false)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	var cyc *CycleError
	if !errors.As(err, &cyc) {
		t.Fatalf("error type = %T, want *CycleError", err)
	}
	if len(cyc.Chain) != 4 {
		t.Errorf("chain = %v, want 4 entries ending where it started", cyc.Chain)
	}
	if cyc.Chain[0] != cyc.Chain[len(cyc.Chain)-1] {
		t.Errorf("chain %v should start and end at the same recipe", cyc.Chain)
	}
	if !strings.Contains(err.Error(), " -> ") {
		t.Errorf("error %q should spell out the chain", err)
	}
}

func TestExtendsUnknownRecipe(t *testing.T) {
	_, err := LoadBytes([]byte(`{
		"a": {"extends": "missing", "layers": [{"type": "osc", "freq_hz": 1}]}
	}`), false)
	if !errors.Is(err, ErrUnknownRecipe) {
		t.Errorf("err = %v, want ErrUnknownRecipe", err)
	}
}

// --- Validation ---

func TestValidationRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no layers", `{"x": {"duration_ms": 100}}`},
		{"zero duration", `{"x": {"duration_ms": 0, "layers": [{"type": "osc", "freq_hz": 1}]}}`},
		{"bad layer type", `{"x": {"layers": [{"type": "wub"}]}}`},
		{"osc without freq", `{"x": {"layers": [{"type": "osc"}]}}`},
		{"bad wave", `{"x": {"layers": [{"type": "osc", "freq_hz": 1, "wave": "saw"}]}}`},
		{"amp over one", `{"x": {"layers": [{"type": "osc", "freq_hz": 1, "amp": 1.5}]}}`},
		{"amp zero", `{"x": {"layers": [{"type": "noise", "amp": 0}]}}`},
		{"sustain over one", `{"x": {"layers": [{"type": "osc", "freq_hz": 1, "env": {"sustain": 1.5}}]}}`},
		{"negative attack", `{"x": {"layers": [{"type": "osc", "freq_hz": 1, "env": {"attack_ms": -1}}]}}`},
		{"glide one element", `{"x": {"layers": [{"type": "osc", "freq_hz": 1, "pitch_glide": [3]}]}}`},
		{"negative jitter", `{"x": {"layers": [{"type": "osc", "freq_hz": 1, "randomize": {"amp_pct": -0.1}}]}}`},
	}
	for _, tt := range tests {
		if _, err := LoadBytes([]byte(tt.src), false); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestGetUnknown(t *testing.T) {
	lib, err := LoadBytes([]byte(`{"x": {"layers": [{"type": "noise"}]}}`), false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lib.Get("nope"); !errors.Is(err, ErrUnknownRecipe) {
		t.Errorf("err = %v, want ErrUnknownRecipe", err)
	}
}

// --- YAML ---

func TestLoadYAML(t *testing.T) {
	lib, err := LoadBytes([]byte(`
zap:
  duration_ms: 90
  layers:
    - type: osc
      wave: triangle
      freq_hz: 880
      pitch_glide: [0, -12]
`), true)
	if err != nil {
		t.Fatal(err)
	}
	spec, err := lib.Get("zap")
	if err != nil {
		t.Fatal(err)
	}
	if spec.DurationMS != 90 {
		t.Errorf("duration = %v, want 90", spec.DurationMS)
	}
	g := spec.Layers[0].Glide
	if g == nil || g.StartSemitones != 0 || g.EndSemitones != -12 {
		t.Errorf("glide = %+v, want 0 to -12", g)
	}
}

// --- Randomized ---

func TestRandomized(t *testing.T) {
	lib, err := LoadBytes([]byte(`{
		"plain": {"layers": [{"type": "osc", "freq_hz": 440}]},
		"jittered": {"layers": [{"type": "osc", "freq_hz": 440,
			"randomize": {"pitch_semitones": 0.5}}]}
	}`), false)
	if err != nil {
		t.Fatal(err)
	}
	plain, _ := lib.Get("plain")
	if plain.Randomized() {
		t.Error("plain recipe should not report randomized")
	}
	jittered, _ := lib.Get("jittered")
	if !jittered.Randomized() {
		t.Error("jittered recipe should report randomized")
	}
}

// --- Embedded defaults ---

func TestLoadDefault(t *testing.T) {
	lib, err := LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	if lib.Len() == 0 {
		t.Fatal("default library is empty")
	}
	for _, id := range []string{"explosion", "pickup_base", "shield_hum"} {
		if _, err := lib.Get(id); err != nil {
			t.Errorf("default library missing %q: %v", id, err)
		}
	}
	hum, _ := lib.Get("shield_hum")
	if !hum.Loop {
		t.Error("shield_hum should loop")
	}
}
