package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TreasureProject/voxagent/internal/gateway"
	"github.com/TreasureProject/voxagent/internal/observe"
	"github.com/TreasureProject/voxagent/pkg/bus"
	"github.com/TreasureProject/voxagent/pkg/event"
)

// Option is a functional option for Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(s *Supervisor) { s.log = log }
}

// WithMetrics sets the metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Supervisor) { s.metrics = m }
}

// WithSession injects a session instead of creating a fresh one.
func WithSession(sess *Session) Option {
	return func(s *Supervisor) { s.session = sess }
}

// Supervisor owns the agent's modules and the central dispatch loop.
//
// Startup is ordered: every module's Start must succeed before any Run loop
// begins; a Start failure stops the already-started modules in reverse order
// and aborts. After startup, one goroutine per module runs its Run loop and
// one more consumes the bus's receive-all queue and reacts to events.
type Supervisor struct {
	bus     *bus.Bus
	gw      gateway.Gateway
	modules []Module
	session *Session
	log     *slog.Logger
	metrics *observe.Metrics

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool
}

// New creates a Supervisor over the given modules. Modules are started in
// slice order and stopped in reverse.
func New(b *bus.Bus, gw gateway.Gateway, modules []Module, opts ...Option) *Supervisor {
	s := &Supervisor{
		bus:     b,
		gw:      gw,
		modules: modules,
		session: NewSession(DefaultMaxTurns),
		log:     slog.Default(),
		metrics: nil,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Session exposes the conversation history.
func (s *Supervisor) Session() *Session { return s.session }

// Start initialises every module and launches the Run loops plus the
// dispatch loop. It returns once everything is running.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("agent: supervisor already started")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	for i, m := range s.modules {
		if err := m.Start(runCtx); err != nil {
			// Unwind the modules that already started.
			for j := i - 1; j >= 0; j-- {
				if stopErr := s.modules[j].Stop(runCtx); stopErr != nil {
					s.log.Warn("[LIFECYCLE] stop after failed startup",
						"module", s.modules[j].Name(), "error", stopErr)
				}
			}
			cancel()
			return fmt.Errorf("agent: start module %s: %w", m.Name(), err)
		}
		s.log.Info("[LIFECYCLE] module started", "module", m.Name())
		s.metrics.ActiveModules.Add(runCtx, 1)
	}

	g, gctx := errgroup.WithContext(runCtx)
	for _, m := range s.modules {
		g.Go(func() error {
			err := m.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error("[LIFECYCLE] module run failed", "module", m.Name(), "error", err)
				return fmt.Errorf("agent: module %s: %w", m.Name(), err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return s.dispatch(gctx)
	})

	s.cancel = cancel
	s.group = g
	s.started = true
	s.log.Info("[LIFECYCLE] agent running", "modules", len(s.modules))
	return nil
}

// Stop cancels the Run loops, waits for them to exit, and stops every module
// in reverse order. ctx bounds the module Stop calls.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false

	s.cancel()
	errs := []error{s.group.Wait()}

	for i := len(s.modules) - 1; i >= 0; i-- {
		m := s.modules[i]
		if err := m.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("agent: stop module %s: %w", m.Name(), err))
		} else {
			s.log.Info("[LIFECYCLE] module stopped", "module", m.Name())
		}
		s.metrics.ActiveModules.Add(ctx, -1)
	}
	return errors.Join(errs...)
}

// stopTimeout bounds the module Stop calls when [Supervisor.Run] shuts
// down.
const stopTimeout = 15 * time.Second

// Run is the one-call lifecycle: Start, block until ctx is cancelled or a
// module's run loop fails, then Stop. The Stop calls get their own deadline
// because ctx is already done by then.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- s.Wait() }()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-done:
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	return errors.Join(runErr, s.Stop(stopCtx))
}

// Wait blocks until every Run loop has exited.
func (s *Supervisor) Wait() error {
	s.mu.Lock()
	g := s.group
	s.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

// dispatch consumes the receive-all queue and reacts to events. Individual
// event failures are logged and absorbed; only bus closure or cancellation
// ends the loop.
func (s *Supervisor) dispatch(ctx context.Context) error {
	for {
		ev, err := s.bus.ReceiveAny(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		s.metrics.RecordEvent(ctx, ev.Type())

		switch e := ev.(type) {
		case event.WakeWordDetected:
			s.log.Info("[DISPATCH] wake word detected")
		case event.SpeechStart:
			s.log.Debug("[DISPATCH] speech started")
		case event.AudioReadyForSTT:
			s.log.Debug("[DISPATCH] utterance captured", "duration", e.Duration())
			s.metrics.Utterances.Add(ctx, 1)
		case event.Transcription:
			s.handleTranscription(ctx, e)
		case event.AgentResponse:
			s.log.Debug("[DISPATCH] agent response published", "chars", len(e.Text))
		default:
			s.log.Debug("[DISPATCH] unhandled event", "type", ev.Type())
		}
	}
}

// handleTranscription runs one chat exchange: the prior history is
// snapshotted, the user turn recorded, and the backend asked for a reply.
// The history sent to the backend never includes the message itself.
//
// On failure the user turn stays in the session and no response event is
// published; the next utterance starts a fresh exchange.
func (s *Supervisor) handleTranscription(ctx context.Context, ev event.Transcription) {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		s.log.Debug("[CHAT] empty transcription dropped", "provider", ev.Provider)
		return
	}
	s.log.Info("[CHAT] user said", "text", text, "provider", ev.Provider)

	history := s.session.History()
	s.session.AppendUser(text)

	start := time.Now()
	reply, err := s.gw.Chat(ctx, gateway.Request{Message: text, History: history})
	s.metrics.ChatDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		reason := "backend"
		switch {
		case errors.Is(err, gateway.ErrUnavailable):
			reason = "unavailable"
		case errors.Is(err, gateway.ErrTimeout):
			reason = "timeout"
		case errors.Is(err, gateway.ErrPayment):
			reason = "payment"
		case errors.Is(err, gateway.ErrTransport):
			reason = "transport"
		case errors.Is(err, gateway.ErrMalformed):
			reason = "malformed"
		}
		s.metrics.RecordChatError(ctx, reason)
		s.log.Error("[CHAT] exchange failed", "reason", reason, "error", err)
		return
	}

	s.session.AppendAssistant(reply.Text)
	if reply.Receipt != nil {
		s.log.Info("[CHAT] payment settled",
			"tx", reply.Receipt.TxHash,
			"network", reply.Receipt.Network,
		)
	}
	s.log.Info("[CHAT] agent replied", "chars", len(reply.Text))
	s.bus.Publish(event.AgentResponse{Text: reply.Text})
}
