// Package config provides the configuration schema and loader for the
// voxagent daemon.
package config

import (
	"time"

	"github.com/TreasureProject/voxagent/pkg/bus"
	"github.com/TreasureProject/voxagent/pkg/vad"
)

// LogLevel controls log verbosity for the agent.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for voxagent.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Audio     AudioConfig     `yaml:"audio"`
	VAD       VADConfig       `yaml:"vad"`
	Bus       BusConfig       `yaml:"bus"`
	Chat      ChatConfig      `yaml:"chat"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds logging and metrics settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address the Prometheus metrics endpoint
	// listens on (e.g., ":9090"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// BackendConfig describes the chat backend and the identity the agent
// presents to it.
type BackendConfig struct {
	// BaseURL is the root URL of the chat backend.
	BaseURL string `yaml:"base_url"`

	// AgentID is the backend token identifier of the agent persona.
	AgentID string `yaml:"agent_id"`

	// SenderName labels the human side of the conversation.
	SenderName string `yaml:"sender_name"`

	// SenderID is the wallet address presented as the payer. Together with
	// AgentID it derives the chat identifier.
	SenderID string `yaml:"sender_id"`

	// Currency is the payment currency announced on each request.
	Currency string `yaml:"currency"`

	// TimeoutSeconds bounds a single chat exchange end to end.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// PaymentToken authorises paid requests. Usually injected through the
	// VOXAGENT_PAYMENT_TOKEN environment variable rather than the file.
	PaymentToken string `yaml:"payment_token"`
}

// Timeout returns the chat exchange deadline as a duration.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// AudioConfig holds the capture format.
type AudioConfig struct {
	// SampleRate of microphone capture in Hz.
	SampleRate int `yaml:"sample_rate"`

	// ChunkFrames is the capture period size in frames.
	ChunkFrames int `yaml:"chunk_frames"`
}

// VADConfig holds the speech segmentation tuning knobs. Zero values fall
// back to the segmenter defaults.
type VADConfig struct {
	EnergyThreshold  float64 `yaml:"energy_threshold"`
	ZCRMin           float64 `yaml:"zcr_min"`
	ZCRMax           float64 `yaml:"zcr_max"`
	SpectralFloor    float64 `yaml:"spectral_floor"`
	SilenceTimeoutMs int     `yaml:"silence_timeout_ms"`
	WindowMs         int     `yaml:"window_ms"`
	MaxUtteranceMs   int     `yaml:"max_utterance_ms"`
}

// SegmenterConfig maps the YAML knobs onto a [vad.Config] for the given
// sample rate.
func (v VADConfig) SegmenterConfig(sampleRate int) vad.Config {
	return vad.Config{
		SampleRate:      sampleRate,
		EnergyThreshold: v.EnergyThreshold,
		ZCRMin:          v.ZCRMin,
		ZCRMax:          v.ZCRMax,
		SpectralFloor:   v.SpectralFloor,
		SilenceTimeout:  time.Duration(v.SilenceTimeoutMs) * time.Millisecond,
		Window:          time.Duration(v.WindowMs) * time.Millisecond,
		MaxUtterance:    time.Duration(v.MaxUtteranceMs) * time.Millisecond,
	}
}

// BusConfig holds event bus queue settings.
type BusConfig struct {
	// QueueCapacity bounds each subscriber queue.
	QueueCapacity int `yaml:"queue_capacity"`

	// OverflowPolicy selects what happens when a queue is full:
	// "drop_oldest", "drop_newest", or "block".
	OverflowPolicy string `yaml:"overflow_policy"`
}

// Policy maps the YAML policy name onto a [bus.OverflowPolicy]. An empty
// name selects drop_oldest.
func (b BusConfig) Policy() (bus.OverflowPolicy, bool) {
	switch b.OverflowPolicy {
	case "", "drop_oldest":
		return bus.DropOldest, true
	case "drop_newest":
		return bus.DropNewest, true
	case "block":
		return bus.Block, true
	}
	return bus.DropOldest, false
}

// ChatConfig holds conversation history settings.
type ChatConfig struct {
	// MaxHistoryTurns bounds the per-session history; the oldest turns are
	// evicted once the cap is exceeded.
	MaxHistoryTurns int `yaml:"max_history_turns"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage.
type ProvidersConfig struct {
	STT ProviderEntry `yaml:"stt"`
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. Unused fields may be left empty.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "openai-whisper",
	// "elevenlabs").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API. Usually
	// injected through the environment rather than the file.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`

	// Language is the recognition language hint (STT only).
	Language string `yaml:"language"`

	// VoiceID is the provider-specific voice identifier (TTS only).
	VoiceID string `yaml:"voice_id"`

	// OutputFormat is the synthesis output format (TTS only).
	OutputFormat string `yaml:"output_format"`
}
