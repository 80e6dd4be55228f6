// Package mixer runs the runtime side of the sound engine: it routes
// play requests through the event catalog, renders recipes, and manages
// per-bus voice pools with cooldowns, priority stealing, ducking and
// equal-power panning. All methods are driven from the game loop and
// are not safe for concurrent use.
package mixer

import (
	"fmt"
	"math"
	"strings"

	"github.com/cjswoto/Dotventurer/internal/catalog"
	"github.com/cjswoto/Dotventurer/internal/output"
	"github.com/cjswoto/Dotventurer/internal/recipe"
	"github.com/cjswoto/Dotventurer/internal/render"
)

// Point is a world or screen position used for panning.
type Point struct {
	X, Y float64
}

const eventHistory = 10

// Mixer owns all live voices. Time is advanced explicitly through
// Update(dt) so behavior is identical with or without a real device.
type Mixer struct {
	catalog  *catalog.Catalog
	library  *recipe.Library
	renderer *render.Renderer
	out      output.Output
	rng      *render.Rand

	master float64
	now    float64

	buses     map[string]*bus
	order     []string          // bus iteration order, fixed
	loops     map[string]*voice // event name -> live loop voice
	cooldowns map[string]float64
	events    []string // most recent granted events, newest last
}

func New(lib *recipe.Library, cat *catalog.Catalog, r *render.Renderer, out output.Output, rng *render.Rand) *Mixer {
	m := &Mixer{
		catalog:   cat,
		library:   lib,
		renderer:  r,
		out:       out,
		rng:       rng,
		master:    1.0,
		buses:     make(map[string]*bus, len(defaultBuses)),
		loops:     make(map[string]*voice),
		cooldowns: make(map[string]float64),
	}
	for _, bc := range defaultBuses {
		m.buses[bc.name] = &bus{name: bc.name, gainDB: bc.gainDB, cap: bc.cap}
		m.order = append(m.order, bc.name)
	}
	return m
}

// SetMasterVolume scales every subsequently started voice. Clamped to [0,1].
func (m *Mixer) SetMasterVolume(v float64) {
	m.master = clampF(v, 0, 1)
}

// Play triggers a one-shot event with center panning. It reports
// whether a voice was actually started; false means the event was on
// cooldown or the bus was full of higher-priority voices.
func (m *Mixer) Play(event string) bool {
	return m.PlayAt(event, Point{}, Point{})
}

// PlayAt triggers an event at a world position. screen gives the
// playfield extent for pan normalization; a zero screen disables
// panning regardless of the event's pan flag.
func (m *Mixer) PlayAt(event string, pos, screen Point) bool {
	spec := m.mustEvent(event)
	if spec.Loop {
		return m.startLoop(spec, pos, screen)
	}
	if m.cooldowns[spec.Name] > 0 {
		return false
	}
	v := m.newVoice(spec, pos, screen, false)
	if !m.admit(v) {
		return false
	}
	m.applyVolume(v)
	if spec.CooldownMS > 0 {
		m.cooldowns[spec.Name] = spec.CooldownMS / 1000.0
	}
	m.record(spec.Name)
	return true
}

// PlayLoop starts a looping event, or refreshes the live loop voice
// in place when the event is already playing.
func (m *Mixer) PlayLoop(event string) bool {
	return m.PlayLoopAt(event, Point{}, Point{})
}

func (m *Mixer) PlayLoopAt(event string, pos, screen Point) bool {
	return m.startLoop(m.mustEvent(event), pos, screen)
}

func (m *Mixer) startLoop(spec *catalog.EventSpec, pos, screen Point) bool {
	if live := m.loops[spec.Name]; live != nil {
		// Already playing: retarget gain, pan and priority without
		// restarting the buffer.
		live.baseLeft, live.baseRight = m.voiceGains(spec, pos, screen)
		live.priority = spec.Priority
		m.applyVolume(live)
		return true
	}
	v := m.newVoice(spec, pos, screen, true)
	if !m.admit(v) {
		return false
	}
	m.applyVolume(v)
	m.record(spec.Name)
	return true
}

// StopLoop stops the live loop voice for the event. No-op when the
// event is not looping.
func (m *Mixer) StopLoop(event string) {
	if v := m.loops[event]; v != nil {
		m.removeVoice(v)
	}
}

// Duck attenuates a bus by gainDB for durMS milliseconds. Overlapping
// ducks on the same bus compose by taking the strongest attenuation.
// Unknown bus names are ignored.
func (m *Mixer) Duck(busName string, gainDB, durMS float64) {
	b := m.buses[strings.ToLower(busName)]
	if b == nil || durMS <= 0 {
		return
	}
	b.addDuck(gainDB, durMS/1000.0)
	m.refreshBus(b)
}

// Update advances engine time by dt seconds: cooldowns tick down, duck
// windows expire, and finished one-shot voices are reaped.
func (m *Mixer) Update(dt float64) {
	if dt <= 0 {
		return
	}
	m.now += dt

	for name, rem := range m.cooldowns {
		rem -= dt
		if rem <= 0 {
			delete(m.cooldowns, name)
		} else {
			m.cooldowns[name] = rem
		}
	}

	for _, name := range m.order {
		b := m.buses[name]
		before := b.duckDB
		b.advanceDucks(dt)

		var done []*voice
		for _, v := range b.voices {
			if v.loop {
				continue
			}
			if v.channel != nil {
				if !v.channel.Busy() {
					done = append(done, v)
				}
			} else if m.now-v.started >= v.duration {
				done = append(done, v)
			}
		}
		for _, v := range done {
			m.removeVoice(v)
		}

		if b.duckDB != before {
			m.refreshBus(b)
		}
	}

	m.checkLoops()
}

// checkLoops asserts the loop index agrees with the bus pools. A
// mismatch is a mixer bug, not a runtime condition.
func (m *Mixer) checkLoops() {
	for name, v := range m.loops {
		b := m.buses[v.bus]
		if b == nil || !b.contains(v) {
			panic(fmt.Sprintf("mixer: loop voice %q missing from bus %q", name, v.bus))
		}
	}
}

func (m *Mixer) mustEvent(name string) *catalog.EventSpec {
	spec, err := m.catalog.Get(name)
	if err != nil {
		panic(err)
	}
	return spec
}

// newVoice renders a variant of the event's recipe and computes its
// stereo gains. The voice is not yet registered or audible.
func (m *Mixer) newVoice(spec *catalog.EventSpec, pos, screen Point, loop bool) *voice {
	id, err := m.catalog.NextRecipeID(spec.Name)
	if err != nil {
		panic(err)
	}
	rspec, err := m.library.Get(id)
	if err != nil {
		panic(err)
	}
	pitch := 0.0
	if spec.PitchJitterSemitones > 0 {
		pitch = m.rng.Spread(spec.PitchJitterSemitones)
	}
	buf := m.renderer.Render(rspec, pitch, 1.0, m.rng)
	left, right := m.voiceGains(spec, pos, screen)
	return &voice{
		event:     spec.Name,
		bus:       spec.Bus,
		priority:  spec.Priority,
		started:   m.now,
		loop:      loop,
		duration:  buf.Duration(),
		baseLeft:  left,
		baseRight: right,
		buf:       buf,
	}
}

// voiceGains folds event gain, bus trim, volume jitter, master volume
// and pan position into per-channel gains. Bus ducking is excluded so
// it can track later duck changes.
func (m *Mixer) voiceGains(spec *catalog.EventSpec, pos, screen Point) (left, right float64) {
	gain := spec.BaseGain * render.DBToGain(m.buses[spec.Bus].gainDB) * m.master
	if spec.VolJitter > 0 {
		gain *= m.rng.RangeF(math.Max(0, 1-spec.VolJitter), 1+spec.VolJitter)
	}
	l, r := panGains(spec.Pan, pos, screen)
	return gain * l, gain * r
}

// panGains implements equal-power panning: the pan angle sweeps a
// quarter circle so left^2+right^2 stays 1 across the field.
func panGains(pan bool, pos, screen Point) (left, right float64) {
	if !pan || screen.X <= 0 {
		return 1, 1
	}
	norm := clampF(pos.X/screen.X*2-1, -1, 1)
	theta := (norm + 1) * math.Pi / 4
	return math.Cos(theta), math.Sin(theta)
}

// admit registers the voice in its bus, evicting a lower-priority
// voice when the bus is full. On success the voice's channel is
// started; on rejection nothing was made audible.
func (m *Mixer) admit(v *voice) bool {
	b := m.buses[v.bus]
	if len(b.voices) >= b.cap {
		victim := b.stealCandidate(v.priority)
		if victim == nil {
			return false
		}
		m.removeVoice(victim)
	}
	b.voices = append(b.voices, v)
	if v.loop {
		m.loops[v.event] = v
	}
	if m.out != nil {
		v.channel = m.out.Play(v.buf, v.loop)
	}
	return true
}

func (m *Mixer) removeVoice(v *voice) {
	if b := m.buses[v.bus]; b != nil {
		b.remove(v)
	}
	if v.channel != nil {
		v.channel.Stop()
		v.channel = nil
	}
	if m.loops[v.event] == v {
		delete(m.loops, v.event)
	}
}

func (m *Mixer) applyVolume(v *voice) {
	if v.channel == nil {
		return
	}
	d := m.buses[v.bus].duckGain()
	v.channel.SetVolume(v.baseLeft*d, v.baseRight*d)
}

func (m *Mixer) refreshBus(b *bus) {
	d := b.duckGain()
	for _, v := range b.voices {
		if v.channel != nil {
			v.channel.SetVolume(v.baseLeft*d, v.baseRight*d)
		}
	}
}

func (m *Mixer) record(event string) {
	m.events = append(m.events, event)
	if len(m.events) > eventHistory {
		m.events = m.events[len(m.events)-eventHistory:]
	}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
