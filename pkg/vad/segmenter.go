// Package vad implements voice activity detection and utterance
// segmentation for a continuous PCM stream.
//
// The central type is [Segmenter], a two-state machine (silent / speaking)
// fed fixed-size audio chunks. Each chunk is appended to a bounded utterance
// buffer and to a short rolling analysis window; the window is classified by
// a majority vote over three cheap streaming features (RMS energy,
// zero-crossing rate, and a spectral-content proxy). Start/end hysteresis
// turns the per-window classification into discrete utterances: the first
// speech window opens an utterance, and a configurable span of uninterrupted
// silence closes it and drains the buffered audio.
//
// All thresholds are tuning knobs exposed through [Config]; the defaults
// match values that work for close-talking microphone input at 16 kHz.
//
// A Segmenter is owned by a single capture loop and is not safe for
// concurrent use.
package vad

import (
	"errors"
	"fmt"
	"time"

	"github.com/TreasureProject/voxagent/pkg/audio"
)

// Defaults applied by [Config.applyDefaults].
const (
	DefaultEnergyThreshold = 0.01
	DefaultZCRMin          = 0.1
	DefaultZCRMax          = 0.5
	DefaultSpectralFloor   = 0.1
	DefaultSilenceTimeout  = 1000 * time.Millisecond
	DefaultWindow          = 100 * time.Millisecond
	DefaultMaxUtterance    = 10 * time.Second
)

// Config holds the segmentation parameters. The zero value of any field is
// replaced with the corresponding default.
type Config struct {
	// SampleRate of the incoming PCM in Hz. Required.
	SampleRate int

	// EnergyThreshold is the RMS level (normalised scale) above which the
	// energy criterion passes.
	EnergyThreshold float64

	// ZCRMin and ZCRMax bound the zero-crossing-rate band that admits
	// voiced speech while rejecting near-silence and steady tones.
	ZCRMin float64
	ZCRMax float64

	// SpectralFloor is the minimum spectral-centroid proxy value for the
	// spectral criterion to pass.
	SpectralFloor float64

	// SilenceTimeout is the uninterrupted silence span that closes an
	// utterance. Shorter pauses are absorbed into the utterance.
	SilenceTimeout time.Duration

	// Window is the length of the rolling analysis window.
	Window time.Duration

	// MaxUtterance bounds the utterance buffer; audio beyond it is
	// truncated from the front.
	MaxUtterance time.Duration
}

func (c *Config) applyDefaults() {
	if c.EnergyThreshold == 0 {
		c.EnergyThreshold = DefaultEnergyThreshold
	}
	if c.ZCRMin == 0 {
		c.ZCRMin = DefaultZCRMin
	}
	if c.ZCRMax == 0 {
		c.ZCRMax = DefaultZCRMax
	}
	if c.SpectralFloor == 0 {
		c.SpectralFloor = DefaultSpectralFloor
	}
	if c.SilenceTimeout == 0 {
		c.SilenceTimeout = DefaultSilenceTimeout
	}
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.MaxUtterance == 0 {
		c.MaxUtterance = DefaultMaxUtterance
	}
}

// EventType classifies the outcome of processing one chunk.
type EventType int

const (
	// Silence: no utterance in progress, chunk classified as non-speech.
	Silence EventType = iota

	// SpeechStart: the chunk opened a new utterance. Emitted exactly once
	// per utterance.
	SpeechStart

	// SpeechContinue: an utterance is in progress (including short silent
	// gaps inside it).
	SpeechContinue

	// UtteranceEnd: the silence timeout elapsed and the utterance closed.
	// The Event carries the drained audio.
	UtteranceEnd
)

// String returns the human-readable name of the event type.
func (t EventType) String() string {
	switch t {
	case Silence:
		return "silence"
	case SpeechStart:
		return "speech_start"
	case SpeechContinue:
		return "speech_continue"
	case UtteranceEnd:
		return "utterance_end"
	default:
		return "unknown"
	}
}

// Event is the outcome of processing a single chunk.
type Event struct {
	Type EventType

	// Audio holds the drained utterance PCM; set only for UtteranceEnd.
	Audio []byte

	// Format describes Audio; set only for UtteranceEnd.
	Format audio.Format

	// Features are the analysis-window measurements that produced this
	// outcome, for debug logging.
	Features Features
}

// Option configures a [Segmenter] during construction.
type Option func(*Segmenter)

// WithClock replaces the wall clock, letting tests drive the silence-timeout
// hysteresis deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *Segmenter) { s.now = now }
}

// Segmenter is the speech segmentation state machine. Create with [New] and
// feed successive PCM chunks to [Segmenter.Process].
type Segmenter struct {
	cfg Config
	now func() time.Time

	utterance *sampleRing
	window    *sampleRing

	speaking   bool
	lastSpeech time.Time
}

// New creates a Segmenter. cfg.SampleRate must be positive; zero-valued
// tuning fields take their defaults.
func New(cfg Config) (*Segmenter, error) {
	if cfg.SampleRate <= 0 {
		return nil, errors.New("vad: sample rate must be positive")
	}
	cfg.applyDefaults()
	if cfg.ZCRMin >= cfg.ZCRMax {
		return nil, fmt.Errorf("vad: zcr band [%v, %v] is empty", cfg.ZCRMin, cfg.ZCRMax)
	}

	s := &Segmenter{
		cfg:       cfg,
		now:       time.Now,
		utterance: newSampleRing(samplesIn(cfg.MaxUtterance, cfg.SampleRate)),
		window:    newSampleRing(samplesIn(cfg.Window, cfg.SampleRate)),
	}
	return s, nil
}

// NewWithOptions creates a Segmenter and applies opts.
func NewWithOptions(cfg Config, opts ...Option) (*Segmenter, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Speaking reports whether an utterance is currently in progress.
func (s *Segmenter) Speaking() bool { return s.speaking }

// Reset returns the machine to the silent state and discards all buffered
// audio. Called on startup and implicitly after every emitted utterance.
func (s *Segmenter) Reset() {
	s.utterance.Reset()
	s.window.Reset()
	s.speaking = false
	s.lastSpeech = time.Time{}
}

// Process consumes one chunk of 16-bit little-endian mono PCM and advances
// the state machine. The returned Event reports what, if anything, happened:
// a SpeechStart exactly once per utterance, an UtteranceEnd carrying the
// drained audio once the silence timeout elapses, and Silence/SpeechContinue
// otherwise.
func (s *Segmenter) Process(chunk []byte) (Event, error) {
	if len(chunk) < 2 {
		return Event{}, fmt.Errorf("vad: chunk too short (%d bytes)", len(chunk))
	}

	samples := audio.PCMToInt16(chunk)
	s.window.Write(samples)

	feats := analyze(s.window.Samples())
	isSpeech := classify(feats, s.cfg)
	now := s.now()

	switch {
	case isSpeech && !s.speaking:
		// Open a new utterance. The buffer starts from the chunk that
		// triggered the transition.
		s.utterance.Reset()
		s.utterance.Write(samples)
		s.speaking = true
		s.lastSpeech = now
		return Event{Type: SpeechStart, Features: feats}, nil

	case isSpeech && s.speaking:
		s.utterance.Write(samples)
		s.lastSpeech = now
		return Event{Type: SpeechContinue, Features: feats}, nil

	case !isSpeech && s.speaking:
		// Keep accumulating across the gap until the timeout closes it.
		s.utterance.Write(samples)
		if now.Sub(s.lastSpeech) < s.cfg.SilenceTimeout {
			return Event{Type: SpeechContinue, Features: feats}, nil
		}

		pcm := audio.Int16ToPCM(s.utterance.Samples())
		s.Reset()
		return Event{
			Type:  UtteranceEnd,
			Audio: pcm,
			Format: audio.Format{
				SampleRate:  s.cfg.SampleRate,
				SampleWidth: 2,
				Channels:    1,
			},
			Features: feats,
		}, nil

	default:
		return Event{Type: Silence, Features: feats}, nil
	}
}

// samplesIn converts a duration to a sample count at the given rate.
func samplesIn(d time.Duration, rate int) int {
	n := int(d.Seconds() * float64(rate))
	if n < 1 {
		n = 1
	}
	return n
}
