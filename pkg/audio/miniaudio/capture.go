package miniaudio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/TreasureProject/voxagent/pkg/audio"
)

// defaultChunkFrames is ~30 ms at 16 kHz.
const defaultChunkFrames = 480

// Ensure Capture implements the audio.CaptureSource interface.
var _ audio.CaptureSource = (*Capture)(nil)

// Capture reads PCM from the default microphone and hands fixed-size chunks
// to the callback passed to [Capture.Start].
type Capture struct {
	mu      sync.Mutex
	device  *malgo.Device
	onChunk func([]byte)
}

func newCapture(ctx *malgo.AllocatedContext, format audio.Format, chunkFrames int) (*Capture, error) {
	sampleFmt, err := deviceFormat(format)
	if err != nil {
		return nil, err
	}
	if chunkFrames <= 0 {
		chunkFrames = defaultChunkFrames
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.SampleRate = uint32(format.SampleRate)
	cfg.Capture.Format = sampleFmt
	cfg.Capture.Channels = uint32(format.Channels)
	cfg.Alsa.NoMMap = 1
	cfg.PerformanceProfile = malgo.LowLatency
	cfg.PeriodSizeInFrames = uint32(chunkFrames)
	cfg.Periods = 3

	c := &Capture{}
	bytesPerFrame := malgo.SampleSizeInBytes(sampleFmt) * format.Channels

	device, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if n == 0 || len(pInput) < n {
				return
			}
			c.mu.Lock()
			fn := c.onChunk
			c.mu.Unlock()
			if fn != nil {
				// malgo reuses the input buffer across callbacks.
				chunk := make([]byte, n)
				copy(chunk, pInput[:n])
				fn(chunk)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("miniaudio: init capture device: %w", err)
	}

	c.device = device
	return c, nil
}

// Start begins capturing. onChunk is invoked from the device thread and must
// not block.
func (c *Capture) Start(onChunk func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return errors.New("miniaudio: capture device closed")
	}
	if c.device.IsStarted() {
		return nil
	}
	c.onChunk = onChunk
	if err := c.device.Start(); err != nil {
		c.onChunk = nil
		return fmt.Errorf("miniaudio: start capture device: %w", err)
	}
	return nil
}

// Stop pauses capturing. The device can be started again.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return errors.New("miniaudio: capture device closed")
	}
	if !c.device.IsStarted() {
		return nil
	}
	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("miniaudio: stop capture device: %w", err)
	}
	c.onChunk = nil
	return nil
}

// Close releases the device. Safe to call more than once.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.onChunk = nil
	return nil
}
