package render

import "time"

// Rand is a tiny deterministic RNG (xorshift64*). A fixed seed makes
// every jitter draw reproducible, which golden-file audio tests rely
// on; seed 0 falls back to the wall clock.
type Rand struct {
	s uint64
}

func NewRand(seed uint64) *Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
		if seed == 0 {
			seed = 1
		}
	}
	return &Rand{s: seed}
}

func (r *Rand) NextU64() uint64 {
	x := r.s
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	r.s = x
	return x * 2685821657736338717
}

func (r *Rand) Float64() float64 {
	return float64(r.NextU64()>>11) * (1.0 / (1 << 53))
}

// RangeF returns a uniform draw in [min, max).
func (r *Rand) RangeF(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + (max-min)*r.Float64()
}

// Spread returns a uniform draw in [-spread, spread).
func (r *Rand) Spread(spread float64) float64 {
	if spread <= 0 {
		return 0
	}
	return r.RangeF(-spread, spread)
}
