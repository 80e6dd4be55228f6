package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cjswoto/Dotventurer/assets"
)

// Recipe defaults, applied once at parse time.
const (
	DefaultDurationMS = 500.0
	DefaultHeadroomDB = -6.0
	DefaultAttackMS   = 8.0
	DefaultDecayMS    = 40.0
	DefaultSustain    = 0.0
	DefaultReleaseMS  = 60.0
)

// ErrUnknownRecipe is returned by Get for ids absent from a loaded
// library. Requesting one indicates a data/code mismatch.
var ErrUnknownRecipe = errors.New("unknown recipe")

// CycleError reports circular "extends" references with the full chain.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "cyclic recipe inheritance: " + strings.Join(e.Chain, " -> ")
}

type rawEnvelope struct {
	AttackMS  *float64 `json:"attack_ms" yaml:"attack_ms"`
	DecayMS   *float64 `json:"decay_ms" yaml:"decay_ms"`
	Sustain   *float64 `json:"sustain" yaml:"sustain"`
	ReleaseMS *float64 `json:"release_ms" yaml:"release_ms"`
}

type rawRandomize struct {
	PitchSemitones *float64 `json:"pitch_semitones" yaml:"pitch_semitones"`
	AmpPct         *float64 `json:"amp_pct" yaml:"amp_pct"`
	StartMS        *float64 `json:"start_ms" yaml:"start_ms"`
}

type rawLayer struct {
	Type       string        `json:"type" yaml:"type"`
	Wave       *string       `json:"wave" yaml:"wave"`
	FreqHz     *float64      `json:"freq_hz" yaml:"freq_hz"`
	LPHz       *float64      `json:"lp_hz" yaml:"lp_hz"`
	Amp        *float64      `json:"amp" yaml:"amp"`
	Env        *rawEnvelope  `json:"env" yaml:"env"`
	PitchGlide []float64     `json:"pitch_glide" yaml:"pitch_glide"`
	Randomize  *rawRandomize `json:"randomize" yaml:"randomize"`
}

type rawRecipe struct {
	Extends      *string     `json:"extends" yaml:"extends"`
	DurationMS   *float64    `json:"duration_ms" yaml:"duration_ms"`
	Loop         *bool       `json:"loop" yaml:"loop"`
	LoopLengthMS *float64    `json:"loop_length_ms" yaml:"loop_length_ms"`
	HeadroomDB   *float64    `json:"headroom_db" yaml:"headroom_db"`
	Layers       *[]rawLayer `json:"layers" yaml:"layers"`
}

// Library holds resolved, immutable recipes keyed by id.
type Library struct {
	recipes map[string]*Spec
}

// Load reads a recipe source file. The format is JSON unless the file
// extension is .yaml or .yml.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipes: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return LoadBytes(data, ext == ".yaml" || ext == ".yml")
}

// LoadDefault builds the library shipped with the engine.
func LoadDefault() (*Library, error) {
	return LoadBytes(assets.Recipes, false)
}

// LoadBytes parses and resolves a recipe source held in memory.
func LoadBytes(data []byte, isYAML bool) (*Library, error) {
	var raw map[string]rawRecipe
	if isYAML {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse recipes: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse recipes: %w", err)
		}
	}
	lib := &Library{recipes: make(map[string]*Spec, len(raw))}
	r := &resolver{raw: raw, done: lib.recipes}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := r.resolve(name, nil); err != nil {
			return nil, err
		}
	}
	log.Printf("recipes ready: %d entries", len(lib.recipes))
	return lib, nil
}

// Get returns the resolved recipe for id.
func (l *Library) Get(id string) (*Spec, error) {
	spec, ok := l.recipes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecipe, id)
	}
	return spec, nil
}

// Len returns the number of resolved recipes.
func (l *Library) Len() int { return len(l.recipes) }

type resolver struct {
	raw  map[string]rawRecipe
	done map[string]*Spec
}

// resolve builds the recipe for name, resolving its parent chain
// depth-first. chain carries the ids currently being resolved so a
// revisit is reported as a cycle with the full path.
func (r *resolver) resolve(name string, chain []string) (*Spec, error) {
	if spec, ok := r.done[name]; ok {
		return spec, nil
	}
	for _, seen := range chain {
		if seen == name {
			return nil, &CycleError{Chain: append(chain, name)}
		}
	}
	raw, ok := r.raw[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (referenced by extends)", ErrUnknownRecipe, name)
	}
	var base *Spec
	if raw.Extends != nil && *raw.Extends != "" {
		parent, err := r.resolve(*raw.Extends, append(chain, name))
		if err != nil {
			return nil, err
		}
		base = parent
	}
	spec, err := buildSpec(name, raw, base)
	if err != nil {
		return nil, err
	}
	r.done[name] = spec
	return spec, nil
}

// buildSpec merges a raw recipe over its resolved base: explicit child
// fields win, a child layer list fully replaces the parent's.
func buildSpec(name string, raw rawRecipe, base *Spec) (*Spec, error) {
	spec := &Spec{
		Name:       name,
		DurationMS: DefaultDurationMS,
		HeadroomDB: DefaultHeadroomDB,
	}
	if base != nil {
		spec.DurationMS = base.DurationMS
		spec.Loop = base.Loop
		spec.LoopLengthMS = base.LoopLengthMS
		spec.HeadroomDB = base.HeadroomDB
		spec.Layers = base.Layers
	}
	if raw.DurationMS != nil {
		spec.DurationMS = *raw.DurationMS
	}
	if raw.Loop != nil {
		spec.Loop = *raw.Loop
	}
	if raw.LoopLengthMS != nil {
		spec.LoopLengthMS = *raw.LoopLengthMS
	}
	if raw.HeadroomDB != nil {
		spec.HeadroomDB = *raw.HeadroomDB
	}
	if raw.Layers != nil {
		layers := make([]LayerSpec, 0, len(*raw.Layers))
		for i, rl := range *raw.Layers {
			layer, err := buildLayer(name, i, rl)
			if err != nil {
				return nil, err
			}
			layers = append(layers, layer)
		}
		spec.Layers = layers
	}
	if spec.DurationMS <= 0 {
		return nil, fmt.Errorf("recipe %q: duration_ms must be positive", name)
	}
	if len(spec.Layers) == 0 {
		return nil, fmt.Errorf("recipe %q: layers must be non-empty", name)
	}
	if spec.Loop && spec.LoopLengthMS == 0 {
		spec.LoopLengthMS = spec.DurationMS
	}
	if spec.LoopLengthMS < 0 {
		return nil, fmt.Errorf("recipe %q: loop_length_ms must be non-negative", name)
	}
	return spec, nil
}

func buildLayer(recipe string, idx int, raw rawLayer) (LayerSpec, error) {
	layer := LayerSpec{
		Amp: 1.0,
		Env: Envelope{
			AttackMS:  DefaultAttackMS,
			DecayMS:   DefaultDecayMS,
			Sustain:   DefaultSustain,
			ReleaseMS: DefaultReleaseMS,
		},
	}
	fail := func(format string, args ...any) (LayerSpec, error) {
		prefix := fmt.Sprintf("recipe %q layer %d: ", recipe, idx)
		return LayerSpec{}, fmt.Errorf(prefix+format, args...)
	}
	switch raw.Type {
	case "osc":
		layer.Kind = KindOscillator
	case "noise":
		layer.Kind = KindNoise
	default:
		return fail("invalid type %q", raw.Type)
	}
	if raw.Wave != nil {
		wave, err := parseWaveform(*raw.Wave)
		if err != nil {
			return fail("%v", err)
		}
		layer.Wave = wave
	}
	if raw.FreqHz != nil {
		layer.FreqHz = *raw.FreqHz
	}
	if layer.Kind == KindOscillator {
		if layer.FreqHz <= 0 {
			return fail("oscillator requires a positive freq_hz")
		}
	}
	if raw.LPHz != nil {
		if *raw.LPHz <= 0 {
			return fail("lp_hz must be positive when set")
		}
		layer.LPHz = *raw.LPHz
	}
	if raw.Amp != nil {
		layer.Amp = *raw.Amp
	}
	if layer.Amp <= 0 || layer.Amp > 1 {
		return fail("amp must be in (0,1]")
	}
	if raw.Env != nil {
		if raw.Env.AttackMS != nil {
			layer.Env.AttackMS = *raw.Env.AttackMS
		}
		if raw.Env.DecayMS != nil {
			layer.Env.DecayMS = *raw.Env.DecayMS
		}
		if raw.Env.Sustain != nil {
			layer.Env.Sustain = *raw.Env.Sustain
		}
		if raw.Env.ReleaseMS != nil {
			layer.Env.ReleaseMS = *raw.Env.ReleaseMS
		}
	}
	if layer.Env.AttackMS < 0 || layer.Env.DecayMS < 0 || layer.Env.ReleaseMS < 0 {
		return fail("envelope times must be non-negative")
	}
	if layer.Env.Sustain < 0 || layer.Env.Sustain > 1 {
		return fail("sustain must be in [0,1]")
	}
	if raw.PitchGlide != nil {
		if len(raw.PitchGlide) != 2 {
			return fail("pitch_glide must be [start, end]")
		}
		layer.Glide = &Glide{
			StartSemitones: raw.PitchGlide[0],
			EndSemitones:   raw.PitchGlide[1],
		}
	}
	if raw.Randomize != nil {
		if raw.Randomize.PitchSemitones != nil {
			layer.Rand.PitchSemitones = *raw.Randomize.PitchSemitones
		}
		if raw.Randomize.AmpPct != nil {
			layer.Rand.AmpPct = *raw.Randomize.AmpPct
		}
		if raw.Randomize.StartMS != nil {
			layer.Rand.StartMS = *raw.Randomize.StartMS
		}
		if layer.Rand.PitchSemitones < 0 || layer.Rand.AmpPct < 0 || layer.Rand.StartMS < 0 {
			return fail("randomize spreads must be non-negative")
		}
	}
	return layer, nil
}
