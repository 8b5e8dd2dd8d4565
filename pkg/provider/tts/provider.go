// Package tts defines the Provider interface for Text-to-Speech backends.
//
// Providers here synthesise one complete reply at a time: the agent hands
// over the backend's response text and receives the finished PCM buffer for
// playback. Streaming synthesis is an implementation detail; providers that
// stream internally (e.g. ElevenLabs) drain their stream before returning.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"

	"github.com/TreasureProject/voxagent/pkg/audio"
)

// Result is the outcome of synthesising one reply.
type Result struct {
	// Audio is raw PCM in Format. Empty audio with a nil error means the
	// provider produced nothing for the given text.
	Audio []byte

	// Format describes Audio.
	Format audio.Format
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize converts text to speech. ctx bounds the request;
	// implementations must return promptly once it is cancelled.
	Synthesize(ctx context.Context, text string) (*Result, error)

	// Name identifies the provider in logs and metrics (e.g. "elevenlabs").
	Name() string
}
