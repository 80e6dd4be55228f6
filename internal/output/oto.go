package output

import (
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/oto/v2"

	"github.com/cjswoto/Dotventurer/internal/render"
)

// Device plays buffers through the host audio device via oto.
// Samples are streamed as 32-bit float LE interleaved stereo.
type Device struct {
	ctx         *oto.Context
	ready       chan struct{}
	maxChannels int32
	active      int32
}

// NewDevice opens the host audio context. maxChannels bounds the
// number of simultaneous players; requests past the cap are
// virtualized rather than queued.
func NewDevice(sampleRate, maxChannels int) (*Device, error) {
	// Bit depth 0 selects oto.FormatFloat32LE.
	ctx, ready, err := oto.NewContext(sampleRate, 2, 0)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	if maxChannels < 1 {
		maxChannels = 1
	}
	return &Device{ctx: ctx, ready: ready, maxChannels: int32(maxChannels)}, nil
}

func (d *Device) Play(buf *render.Buffer, loop bool) Channel {
	select {
	case <-d.ready:
	default:
		// Device still warming up; drop to virtual rather than block.
		return nil
	}
	if atomic.LoadInt32(&d.active) >= d.maxChannels {
		return nil
	}
	atomic.AddInt32(&d.active, 1)
	reader := &bufferReader{buf: buf, loop: loop}
	ch := &deviceChannel{dev: d, reader: reader}
	ch.player = d.ctx.NewPlayer(reader)
	ch.player.Play()
	return ch
}

func (d *Device) Close() error { return nil }

type deviceChannel struct {
	dev    *Device
	player oto.Player
	reader *bufferReader

	mu     sync.Mutex
	closed bool
}

func (c *deviceChannel) SetVolume(left, right float64) {
	c.reader.setGain(left, right)
}

func (c *deviceChannel) Busy() bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}
	return c.player.IsPlaying()
}

func (c *deviceChannel) Stop() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.player.Close()
	atomic.AddInt32(&c.dev.active, -1)
}

// bufferReader streams a shared immutable buffer as float32 LE bytes,
// applying the channel's current stereo gains per frame and wrapping
// at the loop region for looping voices. The shared buffer itself is
// never written.
type bufferReader struct {
	buf  *render.Buffer
	loop bool
	pos  int // frame cursor

	mu          sync.Mutex
	left, right float64
}

func (r *bufferReader) setGain(left, right float64) {
	r.mu.Lock()
	r.left, r.right = left, right
	r.mu.Unlock()
}

func (r *bufferReader) Read(p []byte) (int, error) {
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	r.mu.Lock()
	left, right := r.left, r.right
	r.mu.Unlock()

	end := r.buf.Frames()
	if r.loop && r.buf.LoopEnd > r.buf.LoopStart {
		end = r.buf.LoopEnd
	}
	written := 0
	for written < frames {
		if r.pos >= end {
			if !r.loop {
				break
			}
			r.pos = r.buf.LoopStart
			if r.pos >= end {
				break
			}
		}
		ls, rs := r.buf.Frame(r.pos)
		putStereoF32LR(p, written, float64(ls)*left, float64(rs)*right)
		r.pos++
		written++
	}
	if written == 0 {
		return 0, io.EOF
	}
	return written * 8, nil
}

// putStereoF32LR writes independent left/right samples as float32 LE
// at frame i.
func putStereoF32LR(buf []byte, i int, left, right float64) {
	lv := math.Float32bits(float32(left))
	rv := math.Float32bits(float32(right))
	buf[i*8] = byte(lv)
	buf[i*8+1] = byte(lv >> 8)
	buf[i*8+2] = byte(lv >> 16)
	buf[i*8+3] = byte(lv >> 24)
	buf[i*8+4] = byte(rv)
	buf[i*8+5] = byte(rv >> 8)
	buf[i*8+6] = byte(rv >> 16)
	buf[i*8+7] = byte(rv >> 24)
}
