// Command voxagent is a voice-interaction agent: it listens on the
// microphone, segments speech, transcribes it, sends the text to a paid chat
// backend, and speaks the reply.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TreasureProject/voxagent/internal/agent"
	"github.com/TreasureProject/voxagent/internal/config"
	"github.com/TreasureProject/voxagent/internal/gateway"
	"github.com/TreasureProject/voxagent/internal/health"
	"github.com/TreasureProject/voxagent/internal/modules"
	"github.com/TreasureProject/voxagent/internal/observe"
	"github.com/TreasureProject/voxagent/pkg/audio"
	"github.com/TreasureProject/voxagent/pkg/audio/miniaudio"
	"github.com/TreasureProject/voxagent/pkg/bus"
	"github.com/TreasureProject/voxagent/pkg/provider/stt"
	oaistt "github.com/TreasureProject/voxagent/pkg/provider/stt/openai"
	"github.com/TreasureProject/voxagent/pkg/provider/tts"
	"github.com/TreasureProject/voxagent/pkg/provider/tts/elevenlabs"
	"github.com/TreasureProject/voxagent/pkg/vad"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxagent: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxagent: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voxagent starting",
		"config", *configPath,
		"backend", cfg.Backend.BaseURL,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	// ── Providers ─────────────────────────────────────────────────────────────
	sttProvider, err := buildSTT(cfg.Providers.STT)
	if err != nil {
		slog.Error("failed to create stt provider", "name", cfg.Providers.STT.Name, "err", err)
		return 1
	}
	ttsProvider, err := buildTTS(cfg.Providers.TTS)
	if err != nil {
		slog.Error("failed to create tts provider", "name", cfg.Providers.TTS.Name, "err", err)
		return 1
	}

	// ── Audio devices ─────────────────────────────────────────────────────────
	format := audio.Format{SampleRate: cfg.Audio.SampleRate, SampleWidth: 2, Channels: 1}
	audioClient, err := miniaudio.NewClient()
	if err != nil {
		slog.Error("failed to initialise audio backend", "err", err)
		return 1
	}
	defer func() {
		if err := audioClient.Close(); err != nil {
			slog.Warn("audio backend close error", "err", err)
		}
	}()

	capture, err := audioClient.NewCapture(format, cfg.Audio.ChunkFrames)
	if err != nil {
		slog.Error("failed to open capture device", "err", err)
		return 1
	}
	playback, err := audioClient.NewPlayback(format)
	if err != nil {
		slog.Error("failed to open playback device", "err", err)
		return 1
	}

	// ── Segmenter and event bus ───────────────────────────────────────────────
	segmenter, err := vad.New(cfg.VAD.SegmenterConfig(cfg.Audio.SampleRate))
	if err != nil {
		slog.Error("failed to create speech segmenter", "err", err)
		return 1
	}

	policy, _ := cfg.Bus.Policy()
	eventBus := bus.New(
		bus.WithCapacity(cfg.Bus.QueueCapacity),
		bus.WithPolicy(policy),
		bus.WithDropHandler(func(queue string) {
			metrics.RecordDrop(context.Background(), queue)
		}),
	)

	// ── Backend gateway ───────────────────────────────────────────────────────
	gw, err := gateway.NewClient(cfg.Backend.BaseURL, gateway.Identity{
		AgentID:    cfg.Backend.AgentID,
		SenderName: cfg.Backend.SenderName,
		SenderID:   cfg.Backend.SenderID,
		Currency:   cfg.Backend.Currency,
	}, cfg.Backend.PaymentToken,
		gateway.WithTimeout(cfg.Backend.Timeout()),
		gateway.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to create backend gateway", "err", err)
		return 1
	}
	breaker := gateway.NewBreaker(gw, gateway.BreakerConfig{}, logger)

	// ── Metrics and health endpoints ──────────────────────────────────────────
	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		probes := health.New()
		probes.Add("backend", func(context.Context) error {
			if breaker.State() == gateway.BreakerOpen {
				return errors.New("chat backend circuit open")
			}
			return nil
		})

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		probes.Register(mux)
		metricsSrv = &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics endpoint failed", "addr", cfg.Server.MetricsAddr, "err", err)
			}
		}()
		slog.Info("metrics endpoint listening", "addr", cfg.Server.MetricsAddr)
	}

	// ── Modules ───────────────────────────────────────────────────────────────
	mic, err := modules.NewMicrophone(capture, eventBus, segmenter, logger)
	if err != nil {
		slog.Error("failed to create microphone module", "err", err)
		return 1
	}
	transcriber, err := modules.NewTranscriber(sttProvider, eventBus, logger, metrics)
	if err != nil {
		slog.Error("failed to create transcriber module", "err", err)
		return 1
	}
	speaker, err := modules.NewSpeaker(ttsProvider, playback, eventBus, logger, metrics)
	if err != nil {
		slog.Error("failed to create speaker module", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	supervisor := agent.New(eventBus, breaker, []agent.Module{mic, transcriber, speaker},
		agent.WithLogger(logger),
		agent.WithMetrics(metrics),
		agent.WithSession(agent.NewSession(cfg.Chat.MaxHistoryTurns)),
	)

	slog.Info("agent ready — press Ctrl+C to shut down")

	// Blocks until a signal arrives or a module fails fatally; module Stop
	// calls run inside with their own deadline.
	code := 0
	if err := supervisor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		code = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	eventBus.Close()

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics endpoint shutdown error", "err", err)
		}
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}

	slog.Info("goodbye")
	return code
}

// ── Provider wiring ───────────────────────────────────────────────────────────

func buildSTT(entry config.ProviderEntry) (stt.Provider, error) {
	switch entry.Name {
	case "openai-whisper":
		var opts []oaistt.Option
		if entry.Model != "" {
			opts = append(opts, oaistt.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, oaistt.WithLanguage(entry.Language))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		return oaistt.New(entry.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown stt provider %q", entry.Name)
	}
}

func buildTTS(entry config.ProviderEntry) (tts.Provider, error) {
	switch entry.Name {
	case "elevenlabs":
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if entry.OutputFormat != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(entry.OutputFormat))
		}
		return elevenlabs.New(entry.APIKey, entry.VoiceID, opts...)
	default:
		return nil, fmt.Errorf("unknown tts provider %q", entry.Name)
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         voxagent — startup            ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printEntry("Backend", cfg.Backend.BaseURL)
	printEntry("STT", cfg.Providers.STT.Name)
	printEntry("TTS", cfg.Providers.TTS.Name)
	printEntry("Sample rate", fmt.Sprintf("%d Hz", cfg.Audio.SampleRate))
	if cfg.Server.MetricsAddr != "" {
		printEntry("Metrics", cfg.Server.MetricsAddr)
	} else {
		printEntry("Metrics", "(disabled)")
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printEntry(kind, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 21 {
		value = value[:18] + "…"
	}
	fmt.Printf("║  %-12s : %-21s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
