package render

import (
	"log"
	"math"
	"sync"

	"github.com/cjswoto/Dotventurer/internal/recipe"
)

// DefaultSampleRate is the engine-wide playback rate.
const DefaultSampleRate = 48000

// Renderer turns recipes into stereo buffers. Static renders (no pitch
// offset, no per-layer jitter) are cached by recipe id; jittered
// renders are unique per call and bypass the cache. The cache lock
// keeps the renderer safe to call from a synthesis worker while the
// game thread reads.
type Renderer struct {
	sampleRate int

	mu    sync.Mutex
	cache map[cacheKey]*Buffer
}

type cacheKey struct {
	recipe     string
	pitchCents int
}

func NewRenderer(sampleRate int) *Renderer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Renderer{
		sampleRate: sampleRate,
		cache:      make(map[cacheKey]*Buffer),
	}
}

func (r *Renderer) SampleRate() int { return r.sampleRate }

// Render synthesizes spec at a pitch offset (semitones, applied to all
// oscillator layers) and amplitude scale. rng feeds the per-layer
// jitter draws.
func (r *Renderer) Render(spec *recipe.Spec, pitchSemitones, ampScale float64, rng *Rand) *Buffer {
	key := cacheKey{recipe: spec.Name, pitchCents: int(math.Round(pitchSemitones * 100))}
	cacheable := key.pitchCents == 0 && ampScale == 1.0 && !spec.Randomized()
	if cacheable {
		r.mu.Lock()
		cached := r.cache[key]
		r.mu.Unlock()
		if cached != nil {
			return cached
		}
	}

	buf := r.synthesize(spec, pitchSemitones, ampScale, rng)

	if cacheable {
		r.mu.Lock()
		// A concurrent render of the same key may have landed first;
		// both results are identical, keep whichever is present.
		if existing := r.cache[key]; existing != nil {
			buf = existing
		} else {
			r.cache[key] = buf
		}
		r.mu.Unlock()
	}
	return buf
}

func (r *Renderer) synthesize(spec *recipe.Spec, pitchSemitones, ampScale float64, rng *Rand) *Buffer {
	log.Printf("render: recipe=%s", spec.Name)
	sr := float64(r.sampleRate)
	n := int(math.Round(sr * spec.DurationMS / 1000.0))
	if n <= 0 {
		n = 1
	}
	mix := make([]float64, n)
	for i := range spec.Layers {
		r.renderLayer(mix, &spec.Layers[i], pitchSemitones, rng)
	}

	// Normalize so the peak lands exactly on the recipe's headroom.
	peak := 0.0
	for _, s := range mix {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	target := DBToGain(spec.HeadroomDB)
	if peak > 0 {
		scale := target / peak * ampScale
		for i := range mix {
			mix[i] *= scale
		}
	}

	samples := make([]float32, 2*n)
	for i, s := range mix {
		v := float32(s)
		samples[2*i] = v
		samples[2*i+1] = v
	}
	loopEnd := n
	if spec.Loop {
		loopLen := int(math.Round(sr * spec.LoopLengthMS / 1000.0))
		if loopLen > 0 && loopLen < n {
			loopEnd = loopLen
		}
	}
	return &Buffer{
		Samples:    samples,
		SampleRate: r.sampleRate,
		Loop:       spec.Loop,
		LoopStart:  0,
		LoopEnd:    loopEnd,
	}
}

// renderLayer synthesizes one layer and sums it into mix at the
// layer's (possibly randomized) start offset, clipping at the buffer
// bounds rather than wrapping.
func (r *Renderer) renderLayer(mix []float64, layer *recipe.LayerSpec, pitchSemitones float64, rng *Rand) {
	sr := float64(r.sampleRate)
	n := len(mix)

	start := 0
	if layer.Rand.StartMS > 0 {
		start = int(math.Round(sr * rng.Spread(layer.Rand.StartMS) / 1000.0))
	}
	if start >= n {
		return
	}
	layerLen := n - start

	pitch := pitchSemitones + rng.Spread(layer.Rand.PitchSemitones)
	amp := layer.Amp * (1.0 + rng.Spread(layer.Rand.AmpPct))
	env := newEnvelope(layer.Env, layerLen, sr)

	var alpha float64
	if layer.LPHz > 0 {
		rc := 1.0 / (2.0 * math.Pi * layer.LPHz)
		dt := 1.0 / sr
		alpha = dt / (rc + dt)
	}

	var phase, lp float64
	for i := 0; i < layerLen; i++ {
		var s float64
		switch layer.Kind {
		case recipe.KindOscillator:
			semis := pitch
			if layer.Glide != nil && layerLen > 1 {
				t := float64(i) / float64(layerLen-1)
				semis += layer.Glide.StartSemitones + (layer.Glide.EndSemitones-layer.Glide.StartSemitones)*t
			}
			freq := layer.FreqHz * semitoneRatio(semis)
			phase += 2 * math.Pi * freq / sr
			s = oscillate(layer.Wave, phase)
		case recipe.KindNoise:
			s = rng.RangeF(-1.0, 1.0)
		}
		if alpha > 0 {
			lp += alpha * (s - lp)
			s = lp
		}
		idx := start + i
		if idx < 0 {
			continue
		}
		mix[idx] += s * env.at(i) * amp
	}
}

func oscillate(wave recipe.Waveform, phase float64) float64 {
	switch wave {
	case recipe.WaveTriangle:
		return (2.0 / math.Pi) * math.Asin(math.Sin(phase))
	case recipe.WaveSquare:
		if math.Sin(phase) >= 0 {
			return 1.0
		}
		return -1.0
	default:
		return math.Sin(phase)
	}
}

// envelope is a linear ADSR precomputed in sample counts over one
// layer's active span. Samples past the release tail are zero.
type envelope struct {
	attack, decay, sustainN, release int
	sustain, releaseFrom             float64
}

func newEnvelope(e recipe.Envelope, layerLen int, sampleRate float64) envelope {
	ms := func(v float64) int { return int(v * sampleRate / 1000.0) }
	env := envelope{
		attack:  ms(e.AttackMS),
		decay:   ms(e.DecayMS),
		release: ms(e.ReleaseMS),
		sustain: e.Sustain,
	}
	env.sustainN = layerLen - env.attack - env.decay - env.release
	if env.sustainN < 0 {
		env.sustainN = 0
	}
	env.releaseFrom = e.Sustain
	if env.decay == 0 && env.sustainN == 0 {
		env.releaseFrom = 1.0
	}
	return env
}

func (e envelope) at(i int) float64 {
	switch {
	case i < e.attack:
		return float64(i) / float64(e.attack)
	case i < e.attack+e.decay:
		t := float64(i-e.attack) / float64(e.decay)
		return 1.0 - t*(1.0-e.sustain)
	case i < e.attack+e.decay+e.sustainN:
		return e.sustain
	case i < e.attack+e.decay+e.sustainN+e.release:
		t := float64(i-e.attack-e.decay-e.sustainN) / float64(e.release)
		return e.releaseFrom * (1.0 - t)
	default:
		return 0.0
	}
}

func semitoneRatio(semitones float64) float64 {
	if semitones == 0 {
		return 1.0
	}
	return math.Pow(2.0, semitones/12.0)
}

// DBToGain converts decibels to a linear gain ratio.
func DBToGain(db float64) float64 {
	return math.Pow(10.0, db/20.0)
}
