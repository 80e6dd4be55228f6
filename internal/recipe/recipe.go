package recipe

import "fmt"

// LayerKind discriminates the two synthesis sources a layer can use.
type LayerKind int

const (
	KindOscillator LayerKind = iota
	KindNoise
)

func (k LayerKind) String() string {
	switch k {
	case KindOscillator:
		return "osc"
	case KindNoise:
		return "noise"
	default:
		return "unknown"
	}
}

// Waveform selects the oscillator shape.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveTriangle
	WaveSquare
)

func (w Waveform) String() string {
	switch w {
	case WaveSine:
		return "sine"
	case WaveTriangle:
		return "triangle"
	case WaveSquare:
		return "square"
	default:
		return "unknown"
	}
}

func parseWaveform(s string) (Waveform, error) {
	switch s {
	case "sine":
		return WaveSine, nil
	case "triangle":
		return WaveTriangle, nil
	case "square":
		return WaveSquare, nil
	}
	return WaveSine, fmt.Errorf("invalid wave %q", s)
}

// Envelope is a linear ADSR envelope. Times are in milliseconds,
// sustain is a level in [0,1].
type Envelope struct {
	AttackMS  float64
	DecayMS   float64
	Sustain   float64
	ReleaseMS float64
}

// Randomize holds per-render jitter spreads. Zero values mean the
// layer renders deterministically.
type Randomize struct {
	PitchSemitones float64
	AmpPct         float64
	StartMS        float64
}

func (r Randomize) active() bool {
	return r.PitchSemitones != 0 || r.AmpPct != 0 || r.StartMS != 0
}

// Glide is a linear pitch sweep in semitone offsets across the
// layer's active span.
type Glide struct {
	StartSemitones float64
	EndSemitones   float64
}

// LayerSpec describes one synthesis layer of a recipe.
type LayerSpec struct {
	Kind   LayerKind
	Wave   Waveform // oscillators only
	FreqHz float64  // oscillators only, > 0
	LPHz   float64  // one-pole low-pass cutoff, 0 = bypass
	Amp    float64  // (0,1]
	Env    Envelope
	Glide  *Glide
	Rand   Randomize
}

// Spec is a fully resolved, immutable recipe.
type Spec struct {
	Name         string
	DurationMS   float64
	Loop         bool
	LoopLengthMS float64 // defaults to DurationMS when looping
	HeadroomDB   float64
	Layers       []LayerSpec
}

// Randomized reports whether any layer draws per-render jitter, in
// which case rendered buffers are unique and must not be cached.
func (s *Spec) Randomized() bool {
	for _, l := range s.Layers {
		if l.Rand.active() {
			return true
		}
	}
	return false
}
