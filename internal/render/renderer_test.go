package render

import (
	"math"
	"testing"

	"github.com/cjswoto/Dotventurer/internal/recipe"
)

func toneSpec(name string) *recipe.Spec {
	return &recipe.Spec{
		Name:       name,
		DurationMS: 100,
		HeadroomDB: -6,
		Layers: []recipe.LayerSpec{{
			Kind:   recipe.KindOscillator,
			Wave:   recipe.WaveSine,
			FreqHz: 440,
			Amp:    0.8,
			Env:    recipe.Envelope{AttackMS: 5, DecayMS: 20, Sustain: 0.5, ReleaseMS: 30},
		}},
	}
}

func peakOf(buf *Buffer) float64 {
	peak := 0.0
	for _, s := range buf.Samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	return peak
}

// --- Normalization ---

func TestPeakLandsOnHeadroom(t *testing.T) {
	r := NewRenderer(DefaultSampleRate)
	rng := NewRand(1)
	for _, headroom := range []float64{-3, -6, -12} {
		spec := toneSpec("tone")
		spec.HeadroomDB = headroom
		buf := r.Render(spec, 0.5, 1.0, rng) // pitch offset defeats the cache
		want := DBToGain(headroom)
		got := peakOf(buf)
		if math.Abs(got-want) > 1e-4 {
			t.Errorf("headroom %v dB: peak = %v, want %v", headroom, got, want)
		}
	}
}

func TestAmpScaleAppliedAfterNormalization(t *testing.T) {
	r := NewRenderer(DefaultSampleRate)
	rng := NewRand(1)
	buf := r.Render(toneSpec("tone"), 0.5, 0.5, rng)
	want := DBToGain(-6) * 0.5
	if got := peakOf(buf); math.Abs(got-want) > 1e-4 {
		t.Errorf("peak = %v, want %v", got, want)
	}
}

func TestBufferShape(t *testing.T) {
	r := NewRenderer(DefaultSampleRate)
	buf := r.Render(toneSpec("tone"), 0, 1.0, NewRand(1))
	wantFrames := int(math.Round(DefaultSampleRate * 100.0 / 1000.0))
	if buf.Frames() != wantFrames {
		t.Errorf("frames = %d, want %d", buf.Frames(), wantFrames)
	}
	if len(buf.Samples) != 2*wantFrames {
		t.Errorf("samples = %d, want %d (interleaved stereo)", len(buf.Samples), 2*wantFrames)
	}
	if got := buf.Duration(); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("duration = %v, want 0.1", got)
	}
	l, rch := buf.Frame(10)
	if l != rch {
		t.Errorf("mono source should duplicate channels, got %v / %v", l, rch)
	}
}

// --- Cache ---

func TestStaticRenderCached(t *testing.T) {
	r := NewRenderer(DefaultSampleRate)
	rng := NewRand(1)
	spec := toneSpec("tone")
	a := r.Render(spec, 0, 1.0, rng)
	b := r.Render(spec, 0, 1.0, rng)
	if a != b {
		t.Error("identical static renders should share one buffer")
	}
}

func TestPitchOffsetBypassesCache(t *testing.T) {
	r := NewRenderer(DefaultSampleRate)
	rng := NewRand(1)
	spec := toneSpec("tone")
	a := r.Render(spec, 0, 1.0, rng)
	b := r.Render(spec, 0.3, 1.0, rng)
	if a == b {
		t.Error("pitched render must not reuse the static buffer")
	}
}

func TestRandomizedRecipeBypassesCache(t *testing.T) {
	r := NewRenderer(DefaultSampleRate)
	rng := NewRand(1)
	spec := toneSpec("tone")
	spec.Layers[0].Rand.AmpPct = 0.2
	a := r.Render(spec, 0, 1.0, rng)
	b := r.Render(spec, 0, 1.0, rng)
	if a == b {
		t.Error("randomized renders must be unique per call")
	}
}

// --- Looping ---

func TestLoopPoints(t *testing.T) {
	r := NewRenderer(DefaultSampleRate)
	spec := toneSpec("hum")
	spec.DurationMS = 200
	spec.Loop = true
	spec.LoopLengthMS = 150
	buf := r.Render(spec, 0, 1.0, NewRand(1))
	if !buf.Loop {
		t.Fatal("buffer should carry the loop flag")
	}
	want := int(math.Round(DefaultSampleRate * 150.0 / 1000.0))
	if buf.LoopStart != 0 || buf.LoopEnd != want {
		t.Errorf("loop points = %d..%d, want 0..%d", buf.LoopStart, buf.LoopEnd, want)
	}
}

// --- Envelope ---

func TestEnvelopeShape(t *testing.T) {
	sr := 1000.0 // 1 sample per ms for easy counting
	env := newEnvelope(recipe.Envelope{AttackMS: 10, DecayMS: 10, Sustain: 0.5, ReleaseMS: 10}, 50, sr)
	if got := env.at(0); got != 0 {
		t.Errorf("at(0) = %v, want 0", got)
	}
	if got := env.at(5); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("mid-attack = %v, want 0.5", got)
	}
	if got := env.at(10); got != 1.0 {
		t.Errorf("attack end = %v, want 1", got)
	}
	if got := env.at(25); got != 0.5 {
		t.Errorf("sustain = %v, want 0.5", got)
	}
	if got := env.at(45); got >= 0.5 {
		t.Errorf("release = %v, want below sustain", got)
	}
	if got := env.at(60); got != 0 {
		t.Errorf("past release = %v, want 0", got)
	}
}

func TestEnvelopeShortLayerReleasesFromFull(t *testing.T) {
	// No decay and no room for sustain: release ramps from full level.
	env := newEnvelope(recipe.Envelope{AttackMS: 0, DecayMS: 0, Sustain: 0, ReleaseMS: 10}, 10, 1000)
	if got := env.at(0); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("release start = %v, want 1", got)
	}
	if got := env.at(9); got <= 0 || got >= 0.2 {
		t.Errorf("release end = %v, want a small positive tail", got)
	}
}

// --- Waveforms ---

func TestOscillateRange(t *testing.T) {
	for _, wave := range []recipe.Waveform{recipe.WaveSine, recipe.WaveTriangle, recipe.WaveSquare} {
		for i := 0; i < 1000; i++ {
			phase := float64(i) * 0.01
			if v := oscillate(wave, phase); v < -1.0001 || v > 1.0001 {
				t.Fatalf("%v at phase %v = %v, out of range", wave, phase, v)
			}
		}
	}
}

func TestSemitoneRatio(t *testing.T) {
	if got := semitoneRatio(12); math.Abs(got-2.0) > 1e-12 {
		t.Errorf("12 semitones = %v, want 2", got)
	}
	if got := semitoneRatio(-12); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("-12 semitones = %v, want 0.5", got)
	}
	if got := semitoneRatio(0); got != 1.0 {
		t.Errorf("0 semitones = %v, want exactly 1", got)
	}
}

func TestDBToGain(t *testing.T) {
	if got := DBToGain(0); got != 1.0 {
		t.Errorf("0 dB = %v, want 1", got)
	}
	if got := DBToGain(-6); math.Abs(got-0.5012) > 1e-3 {
		t.Errorf("-6 dB = %v, want about 0.501", got)
	}
	if got := DBToGain(-20); math.Abs(got-0.1) > 1e-12 {
		t.Errorf("-20 dB = %v, want 0.1", got)
	}
}

// --- Rand ---

func TestRandDeterministic(t *testing.T) {
	a, b := NewRand(42), NewRand(42)
	for i := 0; i < 100; i++ {
		if a.NextU64() != b.NextU64() {
			t.Fatal("same seed must give the same sequence")
		}
	}
}

func TestRandBounds(t *testing.T) {
	r := NewRand(7)
	for i := 0; i < 1000; i++ {
		if v := r.Float64(); v < 0 || v >= 1 {
			t.Fatalf("Float64 = %v, out of [0,1)", v)
		}
		if v := r.RangeF(-2, 3); v < -2 || v >= 3 {
			t.Fatalf("RangeF = %v, out of [-2,3)", v)
		}
		if v := r.Spread(0.5); v < -0.5 || v >= 0.5 {
			t.Fatalf("Spread = %v, out of [-0.5,0.5)", v)
		}
	}
	if v := r.Spread(0); v != 0 {
		t.Errorf("Spread(0) = %v, want 0", v)
	}
}
