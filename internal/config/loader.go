package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Defaults applied by [ApplyDefaults].
const (
	DefaultBackendURL     = "https://aifrens.lol/paid"
	DefaultAgentID        = "0xdacd02dd0ce8a923ad26d4c49bb94ece09306c3e"
	DefaultSenderName     = "User"
	DefaultCurrency       = "USDC"
	DefaultTimeoutSeconds = 120

	DefaultSampleRate  = 16000
	DefaultChunkFrames = 480

	DefaultQueueCapacity   = 256
	DefaultMaxHistoryTurns = 200

	DefaultMetricsAddr = ":9090"
)

// secrets is the environment overlay applied after the YAML file. It keeps
// credentials out of config files committed to disk.
type secrets struct {
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	ElevenLabsAPIKey string `env:"ELEVENLABS_API_KEY"`
	PaymentToken     string `env:"VOXAGENT_PAYMENT_TOKEN"`
}

// Load reads the YAML configuration file at path, applies defaults and the
// environment overlay, and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and the
// environment overlay, and validates the result. Useful in tests where
// configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	ApplyDefaults(cfg)

	var sec secrets
	if err := env.Parse(&sec); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	applySecrets(cfg, sec)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with their default values. VAD knobs are
// left alone; the segmenter applies its own defaults to zero values.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.MetricsAddr == "" {
		cfg.Server.MetricsAddr = DefaultMetricsAddr
	}

	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = DefaultBackendURL
	}
	if cfg.Backend.AgentID == "" {
		cfg.Backend.AgentID = DefaultAgentID
	}
	if cfg.Backend.SenderName == "" {
		cfg.Backend.SenderName = DefaultSenderName
	}
	if cfg.Backend.Currency == "" {
		cfg.Backend.Currency = DefaultCurrency
	}
	if cfg.Backend.TimeoutSeconds == 0 {
		cfg.Backend.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = DefaultSampleRate
	}
	if cfg.Audio.ChunkFrames == 0 {
		cfg.Audio.ChunkFrames = DefaultChunkFrames
	}

	if cfg.Bus.QueueCapacity == 0 {
		cfg.Bus.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.Chat.MaxHistoryTurns == 0 {
		cfg.Chat.MaxHistoryTurns = DefaultMaxHistoryTurns
	}

	if cfg.Providers.STT.Name == "" {
		cfg.Providers.STT.Name = "openai-whisper"
	}
	if cfg.Providers.TTS.Name == "" {
		cfg.Providers.TTS.Name = "elevenlabs"
	}
}

// applySecrets overlays environment credentials onto cfg. File values win so
// per-file overrides remain possible.
func applySecrets(cfg *Config, sec secrets) {
	if cfg.Providers.STT.APIKey == "" {
		cfg.Providers.STT.APIKey = sec.OpenAIAPIKey
	}
	if cfg.Providers.TTS.APIKey == "" {
		cfg.Providers.TTS.APIKey = sec.ElevenLabsAPIKey
	}
	if cfg.Backend.PaymentToken == "" {
		cfg.Backend.PaymentToken = sec.PaymentToken
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	}
	if cfg.Backend.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("backend.timeout_seconds %d must not be negative", cfg.Backend.TimeoutSeconds))
	}
	if cfg.Backend.PaymentToken == "" {
		slog.Warn("backend.payment_token is empty; paid chat requests will be rejected by the backend")
	}

	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.ChunkFrames <= 0 {
		errs = append(errs, fmt.Errorf("audio.chunk_frames %d must be positive", cfg.Audio.ChunkFrames))
	}

	if cfg.VAD.ZCRMin != 0 && cfg.VAD.ZCRMax != 0 && cfg.VAD.ZCRMin >= cfg.VAD.ZCRMax {
		errs = append(errs, fmt.Errorf("vad: zcr band [%v, %v] is empty", cfg.VAD.ZCRMin, cfg.VAD.ZCRMax))
	}
	if cfg.VAD.SilenceTimeoutMs < 0 || cfg.VAD.WindowMs < 0 || cfg.VAD.MaxUtteranceMs < 0 {
		errs = append(errs, errors.New("vad: durations must not be negative"))
	}

	if cfg.Bus.QueueCapacity < 0 {
		errs = append(errs, fmt.Errorf("bus.queue_capacity %d must not be negative", cfg.Bus.QueueCapacity))
	}
	if _, ok := cfg.Bus.Policy(); !ok {
		errs = append(errs, fmt.Errorf("bus.overflow_policy %q is invalid; valid values: drop_oldest, drop_newest, block", cfg.Bus.OverflowPolicy))
	}

	if cfg.Chat.MaxHistoryTurns < 0 {
		errs = append(errs, fmt.Errorf("chat.max_history_turns %d must not be negative", cfg.Chat.MaxHistoryTurns))
	}

	validateProvider := func(kind string, entry ProviderEntry, known []string) {
		for _, name := range known {
			if entry.Name == name {
				return
			}
		}
		slog.Warn("unknown provider name, may be a typo",
			"kind", kind,
			"name", entry.Name,
			"known", known,
		)
	}
	validateProvider("stt", cfg.Providers.STT, []string{"openai-whisper"})
	validateProvider("tts", cfg.Providers.TTS, []string{"elevenlabs"})

	if cfg.Providers.TTS.Name == "elevenlabs" && cfg.Providers.TTS.VoiceID == "" {
		errs = append(errs, errors.New("providers.tts.voice_id is required for elevenlabs"))
	}

	return errors.Join(errs...)
}
