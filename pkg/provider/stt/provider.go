// Package stt defines the Provider interface for Speech-to-Text backends.
//
// Unlike a streaming recogniser, providers here transcribe one complete
// utterance at a time: the segmenter hands over a finished PCM buffer and the
// provider returns a single authoritative Result. This batch shape matches
// the push-to-talk-like flow of the agent, where silence detection has
// already decided where the utterance ends.
//
// Implementations must be safe for concurrent use; the agent may transcribe
// overlapping utterances if the user speaks again while a slow request is in
// flight.
package stt

import (
	"context"
	"time"

	"github.com/TreasureProject/voxagent/pkg/audio"
)

// Result is the outcome of transcribing one utterance.
type Result struct {
	// Text is the transcribed speech content. May be empty when the
	// provider heard nothing intelligible.
	Text string

	// Duration is the length of the submitted audio.
	Duration time.Duration
}

// Provider is the abstraction over any batch Speech-to-Text backend.
type Provider interface {
	// Transcribe submits one utterance of raw PCM in the given format and
	// returns its transcription. ctx bounds the request; implementations
	// must return promptly once it is cancelled.
	Transcribe(ctx context.Context, pcm []byte, format audio.Format) (*Result, error)

	// Name identifies the provider in logs and metrics (e.g.
	// "openai-whisper").
	Name() string
}
