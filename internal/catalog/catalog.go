package catalog

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

// Event defaults, applied once at parse time.
const (
	DefaultBus         = "sfx"
	DefaultCooldownMS  = 50.0
	DefaultBaseGain    = 0.9
	DefaultVolJitter   = 0.08
	DefaultPitchJitter = 0.03
	DefaultPriority    = 0
)

// BusNames is the fixed bus enumeration events may target.
var BusNames = []string{"ui", "sfx", "loops", "music"}

// ValidBus reports whether name is one of the known buses.
func ValidBus(name string) bool {
	for _, b := range BusNames {
		if b == name {
			return true
		}
	}
	return false
}

// ErrUnknownEvent is returned by Get for names absent from a loaded
// catalog. Requesting one indicates a data/code mismatch.
var ErrUnknownEvent = errors.New("unknown event")

// EventSpec is the normalized playback policy for one gameplay event.
type EventSpec struct {
	Name                 string
	Bus                  string
	Loop                 bool
	CooldownMS           float64
	BaseGain             float64 // linear, 0..1
	Pan                  bool
	Priority             int
	VolJitter            float64
	PitchJitterSemitones float64
	RecipeIDs            []string
}

type rawEvent struct {
	Bus                  *string  `json:"bus" yaml:"bus"`
	Loop                 *bool    `json:"loop" yaml:"loop"`
	CooldownMS           *float64 `json:"cooldown_ms" yaml:"cooldown_ms"`
	Pan                  *bool    `json:"pan" yaml:"pan"`
	BaseGain             *float64 `json:"base_gain" yaml:"base_gain"`
	Priority             *int     `json:"priority" yaml:"priority"`
	VolJitter            *float64 `json:"vol_jitter" yaml:"vol_jitter"`
	PitchJitterSemitones *float64 `json:"pitch_jitter_semitones" yaml:"pitch_jitter_semitones"`
	Recipe               *string  `json:"recipe" yaml:"recipe"`
	Variants             []string `json:"variants" yaml:"variants"`
}

// Catalog maps event names to specs and owns the per-event round-robin
// cursors used for variant rotation.
type Catalog struct {
	events  map[string]*EventSpec
	cursors map[string]int
}

// Load reads a catalog source file. The format is JSON unless the file
// extension is .yaml or .yml.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return LoadBytes(data, ext == ".yaml" || ext == ".yml")
}

// LoadDefault builds the catalog shipped with the engine.
func LoadDefault() (*Catalog, error) {
	return LoadBytes(assets.Catalog, false)
}

// LoadBytes parses and validates a catalog source held in memory.
func LoadBytes(data []byte, isYAML bool) (*Catalog, error) {
	var raw map[string]rawEvent
	if isYAML {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
	}
	c := &Catalog{
		events:  make(map[string]*EventSpec, len(raw)),
		cursors: make(map[string]int, len(raw)),
	}
	for name, re := range raw {
		spec, err := normalizeEvent(name, re)
		if err != nil {
			return nil, err
		}
		c.events[name] = spec
	}
	log.Printf("catalog loaded: %d events", len(c.events))
	return c, nil
}

func normalizeEvent(name string, raw rawEvent) (*EventSpec, error) {
	spec := &EventSpec{
		Name:                 name,
		Bus:                  DefaultBus,
		CooldownMS:           DefaultCooldownMS,
		BaseGain:             DefaultBaseGain,
		VolJitter:            DefaultVolJitter,
		PitchJitterSemitones: DefaultPitchJitter,
		Priority:             DefaultPriority,
	}
	if raw.Bus != nil {
		spec.Bus = strings.ToLower(*raw.Bus)
	}
	if !ValidBus(spec.Bus) {
		return nil, fmt.Errorf("event %q: invalid bus %q", name, spec.Bus)
	}
	if raw.Loop != nil {
		spec.Loop = *raw.Loop
	}
	if raw.CooldownMS != nil {
		spec.CooldownMS = *raw.CooldownMS
	}
	if spec.CooldownMS < 0 {
		return nil, fmt.Errorf("event %q: cooldown_ms must be non-negative", name)
	}
	if raw.Pan != nil {
		spec.Pan = *raw.Pan
	}
	if raw.BaseGain != nil {
		spec.BaseGain = *raw.BaseGain
	}
	if spec.BaseGain < 0 || spec.BaseGain > 1 {
		return nil, fmt.Errorf("event %q: base_gain must be in [0,1]", name)
	}
	if raw.Priority != nil {
		spec.Priority = *raw.Priority
	}
	if raw.VolJitter != nil {
		spec.VolJitter = *raw.VolJitter
	}
	if raw.PitchJitterSemitones != nil {
		spec.PitchJitterSemitones = *raw.PitchJitterSemitones
	}
	if spec.VolJitter < 0 || spec.PitchJitterSemitones < 0 {
		return nil, fmt.Errorf("event %q: jitter values must be non-negative", name)
	}
	switch {
	case raw.Recipe != nil && raw.Variants != nil:
		return nil, fmt.Errorf("event %q: recipe and variants are mutually exclusive", name)
	case raw.Variants != nil:
		if len(raw.Variants) == 0 {
			return nil, fmt.Errorf("event %q: variants must be non-empty", name)
		}
		spec.RecipeIDs = append([]string(nil), raw.Variants...)
	case raw.Recipe != nil && *raw.Recipe != "":
		spec.RecipeIDs = []string{*raw.Recipe}
	default:
		return nil, fmt.Errorf("event %q: must specify a recipe or variants", name)
	}
	return spec, nil
}

// Get returns the spec for an event name.
func (c *Catalog) Get(name string) (*EventSpec, error) {
	spec, ok := c.events[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	return spec, nil
}

// NextRecipeID returns the event's current variant and advances the
// round-robin cursor. Single-variant events never touch cursor state.
func (c *Catalog) NextRecipeID(name string) (string, error) {
	spec, ok := c.events[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	if len(spec.RecipeIDs) == 1 {
		return spec.RecipeIDs[0], nil
	}
	idx := c.cursors[name]
	c.cursors[name] = (idx + 1) % len(spec.RecipeIDs)
	return spec.RecipeIDs[idx], nil
}

// Events returns all specs sorted by name.
func (c *Catalog) Events() []*EventSpec {
	out := make([]*EventSpec, 0, len(c.events))
	for _, spec := range c.events {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of events.
func (c *Catalog) Len() int { return len(c.events) }
