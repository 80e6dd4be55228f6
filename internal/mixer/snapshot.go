package mixer

// BusSnapshot counts the live voices on one bus. Virtual voices were
// admitted but have no device channel.
type BusSnapshot struct {
	Voices  int
	Virtual int
	DuckDB  float64
}

// Snapshot is a point-in-time view of the mixer for debug overlays
// and the QA harness.
type Snapshot struct {
	Buses  map[string]BusSnapshot
	Events []string // most recent granted events, newest last
}

func (m *Mixer) DebugSnapshot() Snapshot {
	s := Snapshot{Buses: make(map[string]BusSnapshot, len(m.order))}
	for _, name := range m.order {
		b := m.buses[name]
		bs := BusSnapshot{Voices: len(b.voices), DuckDB: b.duckDB}
		for _, v := range b.voices {
			if v.channel == nil {
				bs.Virtual++
			}
		}
		s.Buses[name] = bs
	}
	s.Events = append(s.Events, m.events...)
	return s
}
