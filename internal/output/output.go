// Package output is the playback capability boundary: the mixer hands
// rendered buffers to an Output and keeps only an opaque Channel
// handle per voice. A nil Channel means the voice is virtualized
// (bookkeeping only, no sound), which is the normal state when audio
// is disabled or the device has no free channel.
package output

import "github.com/cjswoto/Dotventurer/internal/render"

// Channel is one live playback slot.
type Channel interface {
	// SetVolume sets the per-channel stereo gains (linear).
	SetVolume(left, right float64)
	// Busy reports whether the channel is still producing sound.
	Busy() bool
	// Stop halts playback and releases the slot. Idempotent.
	Stop()
}

// Output allocates channels and starts playback. Play is
// fire-and-forget and never blocks; it returns nil when no channel is
// available.
type Output interface {
	Play(buf *render.Buffer, loop bool) Channel
	Close() error
}

// Noop is the headless output: it satisfies Output while allocating no
// channels, so every voice stays virtualized.
type Noop struct{}

func (Noop) Play(*render.Buffer, bool) Channel { return nil }
func (Noop) Close() error                      { return nil }
