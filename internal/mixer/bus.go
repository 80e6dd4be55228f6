package mixer

import (
	"github.com/cjswoto/Dotventurer/internal/output"
	"github.com/cjswoto/Dotventurer/internal/render"
)

// Default bus table: gain trim in dB and voice capacity per bus.
var defaultBuses = []busConfig{
	{name: "ui", gainDB: -10.0, cap: 8},
	{name: "sfx", gainDB: -8.0, cap: 16},
	{name: "loops", gainDB: -14.0, cap: 4},
	{name: "music", gainDB: -12.0, cap: 2},
}

type busConfig struct {
	name   string
	gainDB float64
	cap    int
}

// duckWindow is one time-bounded gain reduction on a bus. Concurrent
// windows compose by taking the most attenuating gain.
type duckWindow struct {
	gainDB    float64
	remaining float64 // seconds
}

type bus struct {
	name   string
	gainDB float64
	cap    int
	voices []*voice
	ducks  []duckWindow
	duckDB float64 // current effective duck, 0 = none
}

// duckGain returns the bus's effective duck as a linear factor.
func (b *bus) duckGain() float64 {
	if b.duckDB == 0 {
		return 1.0
	}
	return render.DBToGain(b.duckDB)
}

func (b *bus) addDuck(gainDB, seconds float64) {
	b.ducks = append(b.ducks, duckWindow{gainDB: gainDB, remaining: seconds})
	b.recomputeDuck()
}

func (b *bus) advanceDucks(dt float64) {
	active := b.ducks[:0]
	for _, w := range b.ducks {
		w.remaining -= dt
		if w.remaining > 0 {
			active = append(active, w)
		}
	}
	b.ducks = active
	b.recomputeDuck()
}

func (b *bus) recomputeDuck() {
	b.duckDB = 0
	for _, w := range b.ducks {
		if w.gainDB < b.duckDB {
			b.duckDB = w.gainDB
		}
	}
}

// stealCandidate returns the victim a request of the given priority
// may evict: the lowest-priority, oldest voice, and only when the
// incoming priority is at least the victim's. nil means reject.
func (b *bus) stealCandidate(incomingPriority int) *voice {
	var cand *voice
	for _, v := range b.voices {
		if cand == nil || v.priority < cand.priority ||
			(v.priority == cand.priority && v.started < cand.started) {
			cand = v
		}
	}
	if cand == nil || cand.priority > incomingPriority {
		return nil
	}
	return cand
}

func (b *bus) remove(v *voice) bool {
	for i, cur := range b.voices {
		if cur == v {
			b.voices = append(b.voices[:i], b.voices[i+1:]...)
			return true
		}
	}
	return false
}

func (b *bus) contains(v *voice) bool {
	for _, cur := range b.voices {
		if cur == v {
			return true
		}
	}
	return false
}

// voice is one granted play request, alive in exactly one bus.
type voice struct {
	event    string
	bus      string
	priority int
	started  float64 // engine time at creation
	loop     bool
	duration float64 // rendered length in seconds

	// Stereo gains before bus ducking; the duck factor is applied at
	// SetVolume time so live voices follow duck changes.
	baseLeft, baseRight float64

	buf     *render.Buffer
	channel output.Channel // nil when virtualized
}
