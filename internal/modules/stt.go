package modules

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/TreasureProject/voxagent/internal/agent"
	"github.com/TreasureProject/voxagent/internal/observe"
	"github.com/TreasureProject/voxagent/pkg/bus"
	"github.com/TreasureProject/voxagent/pkg/event"
	"github.com/TreasureProject/voxagent/pkg/provider/stt"
)

// Ensure Transcriber implements the agent.Module interface.
var _ agent.Module = (*Transcriber)(nil)

// Transcriber consumes finished utterances and publishes their
// transcriptions. Utterances the provider hears nothing in are dropped so
// downstream never sees empty text.
type Transcriber struct {
	provider stt.Provider
	bus      *bus.Bus
	log      *slog.Logger
	metrics  *observe.Metrics

	sub *bus.Subscription
}

// NewTranscriber creates the speech-to-text module.
func NewTranscriber(provider stt.Provider, b *bus.Bus, log *slog.Logger, metrics *observe.Metrics) (*Transcriber, error) {
	if provider == nil || b == nil {
		return nil, errors.New("modules: transcriber needs a provider and a bus")
	}
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Transcriber{provider: provider, bus: b, log: log, metrics: metrics}, nil
}

// Name implements agent.Module.
func (t *Transcriber) Name() string { return "transcriber" }

// Start implements agent.Module.
func (t *Transcriber) Start(context.Context) error {
	t.sub = t.bus.Subscribe(event.TypeAudioReadyForSTT)
	return nil
}

// Run implements agent.Module: one transcription at a time, in utterance
// order. Provider failures are logged and absorbed so a flaky network call
// never takes the agent down.
func (t *Transcriber) Run(ctx context.Context) error {
	for {
		ev, err := t.sub.Receive(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrClosed) {
				return nil
			}
			return err
		}
		utt, ok := ev.(event.AudioReadyForSTT)
		if !ok {
			continue
		}

		start := time.Now()
		res, err := t.provider.Transcribe(ctx, utt.Audio, utt.Format)
		t.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			t.log.Error("[STT] transcription failed",
				"provider", t.provider.Name(),
				"error", err,
			)
			continue
		}
		if strings.TrimSpace(res.Text) == "" {
			t.log.Debug("[STT] nothing heard", "duration", utt.Duration())
			continue
		}

		t.log.Info("[STT] transcribed",
			"text", res.Text,
			"duration", utt.Duration(),
			"took", time.Since(start),
		)
		t.bus.Publish(event.Transcription{
			Text:          res.Text,
			AudioDuration: utt.Duration(),
			Provider:      t.provider.Name(),
		})
	}
}

// Stop implements agent.Module.
func (t *Transcriber) Stop(context.Context) error { return nil }
