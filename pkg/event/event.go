// Package event defines the event vocabulary exchanged over the voxagent
// bus. Every event is a small immutable value implementing [Event]; the bus
// routes on the type tag string while consumers type-switch on the concrete
// struct, so payload shapes are checked at compile time rather than by
// convention.
//
// The vocabulary is the contract between pipeline modules: the capture
// module produces SpeechStart and AudioReadyForSTT, the transcription module
// consumes AudioReadyForSTT and produces Transcription, and the supervisor
// turns Transcription into AgentResponse for the synthesis module.
package event

import (
	"time"

	"github.com/TreasureProject/voxagent/pkg/audio"
)

// Event is a value published on the bus. Type returns the routing tag used
// for subscriptions. Events must be treated as immutable once published.
type Event interface {
	Type() string
}

// Routing tags for the built-in event vocabulary.
const (
	TypeWakeWordDetected = "wake_word_detected"
	TypeSpeechStart      = "speech_start"
	TypeAudioReadyForSTT = "audio_ready_for_stt"
	TypeTranscription    = "transcription"
	TypeAgentResponse    = "agent_response"
)

// WakeWordDetected signals that a configured wake word was heard.
// Reserved for wake-word capture modules; the VAD capture module does not
// emit it.
type WakeWordDetected struct{}

func (WakeWordDetected) Type() string { return TypeWakeWordDetected }

// SpeechStart signals the transition from silence to an in-progress
// utterance. Emitted exactly once per utterance.
type SpeechStart struct{}

func (SpeechStart) Type() string { return TypeSpeechStart }

// AudioReadyForSTT carries one complete utterance of raw PCM, emitted when
// the segmenter closes an utterance after the silence timeout.
type AudioReadyForSTT struct {
	// Audio is the raw little-endian PCM of the utterance.
	Audio []byte

	// Format describes the PCM layout of Audio.
	Format audio.Format
}

func (AudioReadyForSTT) Type() string { return TypeAudioReadyForSTT }

// Duration returns the play time of the utterance audio.
func (e AudioReadyForSTT) Duration() time.Duration {
	return e.Format.Duration(len(e.Audio))
}

// Transcription carries the text of one transcribed utterance.
type Transcription struct {
	// Text is the transcribed speech.
	Text string

	// AudioDuration is the play time of the source utterance.
	AudioDuration time.Duration

	// Provider names the STT backend that produced the text.
	Provider string
}

func (Transcription) Type() string { return TypeTranscription }

// AgentResponse carries the chat backend's reply text, consumed by the
// speech-synthesis module.
type AgentResponse struct {
	Text string
}

func (AgentResponse) Type() string { return TypeAgentResponse }
