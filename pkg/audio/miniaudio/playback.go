package miniaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/TreasureProject/voxagent/pkg/audio"
)

// Ensure Playback implements the audio.PlaybackSink interface.
var _ audio.PlaybackSink = (*Playback)(nil)

// playbackMark marks a position in the queued audio; done is closed once the
// device has consumed everything before it.
type playbackMark struct {
	pos  int
	done chan struct{}
}

// Playback writes PCM to the default output device. Play queues audio and
// blocks until the device has consumed it, so callers get natural
// backpressure between replies.
type Playback struct {
	format audio.Format

	mu     sync.Mutex
	device *malgo.Device
	buf    []byte
	marks  []*playbackMark
}

func newPlayback(ctx *malgo.AllocatedContext, format audio.Format) (*Playback, error) {
	sampleFmt, err := deviceFormat(format)
	if err != nil {
		return nil, err
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.SampleRate = uint32(format.SampleRate)
	cfg.Playback.Format = sampleFmt
	cfg.Playback.Channels = uint32(format.Channels)
	cfg.Alsa.NoMMap = 1
	cfg.PeriodSizeInFrames = uint32(format.SampleRate / 10) // ~100ms of audio
	cfg.Periods = 4

	p := &Playback{format: format}

	device, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, _ uint32) {
			p.fill(pOutput)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("miniaudio: init playback device: %w", err)
	}

	p.device = device
	return p, nil
}

// fill runs on the device thread: it moves queued audio into the output
// buffer and fires marks whose audio has been fully consumed.
func (p *Playback) fill(pOutput []byte) {
	need := len(pOutput)

	p.mu.Lock()
	n := copy(pOutput, p.buf)
	p.buf = p.buf[n:]

	var fire []chan struct{}
	keep := p.marks[:0]
	for _, m := range p.marks {
		m.pos -= need
		if m.pos <= 0 {
			fire = append(fire, m.done)
		} else {
			keep = append(keep, m)
		}
	}
	p.marks = keep
	p.mu.Unlock()

	for _, done := range fire {
		close(done)
	}
}

// Play queues pcm and blocks until the device has consumed it or ctx is
// cancelled. Cancellation drops all still-queued audio.
func (p *Playback) Play(ctx context.Context, pcm []byte, format audio.Format) error {
	if format != p.format {
		return fmt.Errorf("miniaudio: format %+v does not match device format %+v", format, p.format)
	}
	if len(pcm) == 0 {
		return nil
	}

	p.mu.Lock()
	if p.device == nil {
		p.mu.Unlock()
		return errors.New("miniaudio: playback device closed")
	}
	if !p.device.IsStarted() {
		if err := p.device.Start(); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("miniaudio: start playback device: %w", err)
		}
	}
	p.buf = append(p.buf, pcm...)
	mark := &playbackMark{pos: len(p.buf), done: make(chan struct{})}
	p.marks = append(p.marks, mark)
	p.mu.Unlock()

	select {
	case <-mark.done:
		return nil
	case <-ctx.Done():
		p.flush()
		return ctx.Err()
	}
}

// flush drops queued audio and releases all waiters.
func (p *Playback) flush() {
	p.mu.Lock()
	marks := p.marks
	p.buf = nil
	p.marks = nil
	p.mu.Unlock()

	// Marks removed under the lock are owned by exactly one closer.
	for _, m := range marks {
		close(m.done)
	}
}

// Close stops the device and releases it. Safe to call more than once.
func (p *Playback) Close() error {
	p.mu.Lock()
	device := p.device
	p.device = nil
	p.mu.Unlock()

	p.flush()
	if device != nil {
		device.Uninit()
	}
	return nil
}
