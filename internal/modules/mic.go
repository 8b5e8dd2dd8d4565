// Package modules provides the built-in agent modules: microphone capture
// with utterance segmentation, speech-to-text, and speech playback. Each
// module implements [agent.Module] and talks to the rest of the agent only
// through the event bus.
package modules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/TreasureProject/voxagent/internal/agent"
	"github.com/TreasureProject/voxagent/pkg/audio"
	"github.com/TreasureProject/voxagent/pkg/bus"
	"github.com/TreasureProject/voxagent/pkg/event"
	"github.com/TreasureProject/voxagent/pkg/vad"
)

// chunkQueueSize bounds the hand-off between the device callback and the
// segmentation loop. The callback must never block, so chunks beyond this
// backlog are dropped.
const chunkQueueSize = 64

// Ensure Microphone implements the agent.Module interface.
var _ agent.Module = (*Microphone)(nil)

// Microphone captures PCM from a [audio.CaptureSource], feeds it through the
// utterance segmenter, and publishes [event.SpeechStart] and
// [event.AudioReadyForSTT].
type Microphone struct {
	source    audio.CaptureSource
	bus       *bus.Bus
	segmenter *vad.Segmenter
	log       *slog.Logger

	chunks  chan []byte
	dropped int
}

// NewMicrophone creates the capture module. The segmenter's sample rate must
// match the source's capture format.
func NewMicrophone(source audio.CaptureSource, b *bus.Bus, seg *vad.Segmenter, log *slog.Logger) (*Microphone, error) {
	if source == nil || b == nil || seg == nil {
		return nil, errors.New("modules: microphone needs a source, a bus, and a segmenter")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Microphone{
		source:    source,
		bus:       b,
		segmenter: seg,
		log:       log,
		chunks:    make(chan []byte, chunkQueueSize),
	}, nil
}

// Name implements agent.Module.
func (m *Microphone) Name() string { return "microphone" }

// Start implements agent.Module. It begins device capture; chunks are
// buffered until Run drains them.
func (m *Microphone) Start(context.Context) error {
	return m.source.Start(m.onChunk)
}

// onChunk runs on the device thread and must not block: when the
// segmentation loop falls behind, the chunk is dropped.
func (m *Microphone) onChunk(chunk []byte) {
	select {
	case m.chunks <- chunk:
	default:
		m.dropped++
		if m.dropped == 1 {
			m.log.Warn("[AUDIO] segmentation loop behind, dropping capture chunks")
		}
	}
}

// Run implements agent.Module: it drains captured chunks through the
// segmenter and publishes segmentation outcomes.
func (m *Microphone) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk := <-m.chunks:
			ev, err := m.segmenter.Process(chunk)
			if err != nil {
				m.log.Warn("[AUDIO] bad capture chunk", "error", err)
				continue
			}
			switch ev.Type {
			case vad.SpeechStart:
				m.log.Debug("[AUDIO] speech started",
					"rms", ev.Features.RMS,
					"zcr", ev.Features.ZCR,
				)
				m.bus.Publish(event.SpeechStart{})
			case vad.UtteranceEnd:
				m.log.Info("[AUDIO] utterance finished",
					"duration", ev.Format.Duration(len(ev.Audio)),
				)
				m.bus.Publish(event.AudioReadyForSTT{Audio: ev.Audio, Format: ev.Format})
			}
		}
	}
}

// Stop implements agent.Module.
func (m *Microphone) Stop(context.Context) error {
	if err := m.source.Stop(); err != nil {
		return fmt.Errorf("modules: stop capture: %w", err)
	}
	return m.source.Close()
}
