package modules

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/TreasureProject/voxagent/internal/agent"
	"github.com/TreasureProject/voxagent/internal/observe"
	"github.com/TreasureProject/voxagent/pkg/audio"
	"github.com/TreasureProject/voxagent/pkg/bus"
	"github.com/TreasureProject/voxagent/pkg/event"
	"github.com/TreasureProject/voxagent/pkg/provider/tts"
)

// Ensure Speaker implements the agent.Module interface.
var _ agent.Module = (*Speaker)(nil)

// Speaker synthesises agent responses and plays them on a
// [audio.PlaybackSink]. Responses play one after another; playback of a
// reply finishes before the next synthesis starts.
type Speaker struct {
	provider tts.Provider
	sink     audio.PlaybackSink
	bus      *bus.Bus
	log      *slog.Logger
	metrics  *observe.Metrics

	sub *bus.Subscription
}

// NewSpeaker creates the playback module.
func NewSpeaker(provider tts.Provider, sink audio.PlaybackSink, b *bus.Bus, log *slog.Logger, metrics *observe.Metrics) (*Speaker, error) {
	if provider == nil || sink == nil || b == nil {
		return nil, errors.New("modules: speaker needs a provider, a sink, and a bus")
	}
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Speaker{provider: provider, sink: sink, bus: b, log: log, metrics: metrics}, nil
}

// Name implements agent.Module.
func (s *Speaker) Name() string { return "speaker" }

// Start implements agent.Module.
func (s *Speaker) Start(context.Context) error {
	s.sub = s.bus.Subscribe(event.TypeAgentResponse)
	return nil
}

// Run implements agent.Module. Synthesis failures are logged and absorbed;
// the reply text has already been recorded in the session either way.
func (s *Speaker) Run(ctx context.Context) error {
	for {
		ev, err := s.sub.Receive(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrClosed) {
				return nil
			}
			return err
		}
		resp, ok := ev.(event.AgentResponse)
		if !ok {
			continue
		}

		start := time.Now()
		res, err := s.provider.Synthesize(ctx, resp.Text)
		s.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			s.log.Error("[TTS] synthesis failed",
				"provider", s.provider.Name(),
				"error", err,
			)
			continue
		}
		if len(res.Audio) == 0 {
			s.log.Debug("[TTS] provider produced no audio")
			continue
		}

		s.log.Debug("[TTS] playing reply",
			"duration", res.Format.Duration(len(res.Audio)),
			"took", time.Since(start),
		)
		if err := s.sink.Play(ctx, res.Audio, res.Format); err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			s.log.Error("[TTS] playback failed", "error", err)
		}
	}
}

// Stop implements agent.Module.
func (s *Speaker) Stop(context.Context) error {
	return s.sink.Close()
}
