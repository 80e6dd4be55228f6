package render

// Buffer is a rendered stereo sound: interleaved L/R float32 samples
// tagged with loop metadata. Buffers handed out by the Renderer may be
// shared by many voices at once and must be treated as immutable;
// anything applying per-voice gain works on a copy or scales while
// streaming.
type Buffer struct {
	Samples    []float32 // interleaved stereo, len = 2 * Frames()
	SampleRate int
	Loop       bool
	LoopStart  int // frame index
	LoopEnd    int // frame index, exclusive
}

// Frames returns the buffer length in stereo frames.
func (b *Buffer) Frames() int { return len(b.Samples) / 2 }

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Frame returns the left and right samples at frame i.
func (b *Buffer) Frame(i int) (left, right float32) {
	return b.Samples[2*i], b.Samples[2*i+1]
}
