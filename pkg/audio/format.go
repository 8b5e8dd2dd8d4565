// Package audio provides the PCM primitives shared by the voxagent pipeline:
// the Format descriptor attached to every audio payload, conversions between
// raw little-endian PCM bytes and sample slices, and a minimal WAV encoder
// for providers that require a container around raw samples.
//
// All audio flowing through the pipeline is 16-bit signed little-endian PCM;
// Format carries the sample rate, sample width, and channel count alongside
// the bytes so that consumers never have to guess.
package audio

import "time"

// Format describes the layout of a raw PCM byte stream.
type Format struct {
	// SampleRate in Hz (e.g., 16000 for STT input, 44100 for TTS output).
	SampleRate int

	// SampleWidth is the number of bytes per sample. Always 2 for the
	// 16-bit PCM used throughout the pipeline.
	SampleWidth int

	// Channels is the number of interleaved channels. 1 = mono.
	Channels int
}

// DefaultFormat is 16 kHz 16-bit mono, the format the capture pipeline and
// the STT providers operate in.
var DefaultFormat = Format{SampleRate: 16000, SampleWidth: 2, Channels: 1}

// BytesPerSecond returns the byte rate of a stream in this format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.SampleWidth * f.Channels
}

// Duration returns the play time of n bytes of PCM in this format.
// Returns 0 if the format is not fully specified.
func (f Format) Duration(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}

// Valid reports whether all format fields are positive.
func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.SampleWidth > 0 && f.Channels > 0
}
