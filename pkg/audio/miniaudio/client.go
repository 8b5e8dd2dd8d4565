// Package miniaudio binds the microphone and speaker interfaces of
// [github.com/TreasureProject/voxagent/pkg/audio] to the operating system's
// audio devices through malgo (miniaudio).
package miniaudio

import (
	"errors"
	"fmt"

	"github.com/gen2brain/malgo"

	"github.com/TreasureProject/voxagent/pkg/audio"
)

// Client owns the malgo context shared by all devices it opens. Close it
// only after every device created from it has been closed.
type Client struct {
	ctx *malgo.AllocatedContext
}

// NewClient initialises the platform audio backend.
func NewClient() (*Client, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("miniaudio: init context: %w", err)
	}
	return &Client{ctx: ctx}, nil
}

// NewCapture opens the default capture device. chunkFrames sets the period
// size in frames; zero selects a low-latency default.
func (c *Client) NewCapture(format audio.Format, chunkFrames int) (*Capture, error) {
	return newCapture(c.ctx, format, chunkFrames)
}

// NewPlayback opens the default playback device.
func (c *Client) NewPlayback(format audio.Format) (*Playback, error) {
	return newPlayback(c.ctx, format)
}

// Close tears down the malgo context.
func (c *Client) Close() error {
	if c.ctx == nil {
		return nil
	}
	err := c.ctx.Uninit()
	c.ctx.Free()
	c.ctx = nil
	return err
}

// deviceFormat maps a PCM format to the malgo sample format, rejecting
// anything other than 16-bit mono/stereo.
func deviceFormat(format audio.Format) (malgo.FormatType, error) {
	if !format.Valid() {
		return malgo.FormatUnknown, fmt.Errorf("miniaudio: invalid format %+v", format)
	}
	if format.SampleWidth != 2 {
		return malgo.FormatUnknown, errors.New("miniaudio: only 16-bit samples are supported")
	}
	return malgo.FormatS16, nil
}
