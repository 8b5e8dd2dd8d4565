package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrUnavailable is returned by [Breaker.Chat] while the breaker is open:
// the backend failed too many exchanges in a row and is being left alone
// until the cooldown elapses. No request is sent and nothing is charged.
var ErrUnavailable = errors.New("gateway: backend unavailable")

// BreakerState is the operating mode of a [Breaker].
type BreakerState int

const (
	// BreakerClosed forwards every exchange.
	BreakerClosed BreakerState = iota

	// BreakerOpen rejects exchanges with [ErrUnavailable] until the
	// cooldown elapses.
	BreakerOpen

	// BreakerHalfOpen lets a limited number of probe exchanges through to
	// test whether the backend recovered.
	BreakerHalfOpen
)

// String returns the human-readable name of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// BreakerConfig holds the trip thresholds. Zero values fall back to the
// defaults.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failed exchanges before the
	// breaker opens. Default: 3.
	MaxFailures int

	// Cooldown is how long the breaker stays open before probing the
	// backend again. Default: 30s.
	Cooldown time.Duration

	// ProbeMax is the number of successful probes required to close again.
	// Default: 1.
	ProbeMax int
}

// Breaker wraps a [Gateway] with a three-state circuit breaker so that a
// dead backend is not hammered with paid requests. Only [ErrTimeout] and
// [ErrTransport] count as trips; payment refusals and malformed responses
// mean the backend is reachable and leave the breaker alone.
//
// A Breaker is safe for concurrent use, though the agent drives it from a
// single dispatch loop.
type Breaker struct {
	next Gateway
	log  *slog.Logger

	maxFailures int
	cooldown    time.Duration
	probeMax    int

	mu             sync.Mutex
	state          BreakerState
	failures       int
	openedAt       time.Time
	probeInFlight  bool
	probeSuccesses int
}

// Ensure Breaker implements the Gateway interface.
var _ Gateway = (*Breaker)(nil)

// NewBreaker wraps next with a circuit breaker.
func NewBreaker(next Gateway, cfg BreakerConfig, log *slog.Logger) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.ProbeMax <= 0 {
		cfg.ProbeMax = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Breaker{
		next:        next,
		log:         log,
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
		probeMax:    cfg.ProbeMax,
	}
}

// Chat implements [Gateway]. While the breaker is open it returns
// [ErrUnavailable] without touching the backend.
func (b *Breaker) Chat(ctx context.Context, req Request) (*Reply, error) {
	if err := b.admit(); err != nil {
		return nil, err
	}

	reply, err := b.next.Chat(ctx, req)
	b.record(err)
	return reply, err
}

// State returns the breaker's current state. An open breaker whose cooldown
// has elapsed reports half-open; the transition itself happens on the next
// exchange.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.openedAt) >= b.cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

// admit decides whether the next exchange may go out.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if time.Since(b.openedAt) < b.cooldown {
			return ErrUnavailable
		}
		b.state = BreakerHalfOpen
		b.probeInFlight = false
		b.probeSuccesses = 0
		b.log.Info("[GATEWAY] breaker probing backend")
	case BreakerHalfOpen:
		// One probe in flight at a time keeps a flapping backend from
		// seeing a burst of paid requests.
		if b.probeInFlight {
			return ErrUnavailable
		}
	}

	if b.state == BreakerHalfOpen {
		b.probeInFlight = true
	}
	return nil
}

// record folds the outcome of an exchange into the breaker state.
func (b *Breaker) record(err error) {
	trip := errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransport)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.probeInFlight = false
		if trip {
			b.state = BreakerOpen
			b.openedAt = time.Now()
			b.failures = b.maxFailures
			b.log.Warn("[GATEWAY] breaker re-opened, probe failed")
			return
		}
		if err == nil {
			b.probeSuccesses++
			if b.probeSuccesses >= b.probeMax {
				b.state = BreakerClosed
				b.failures = 0
				b.log.Info("[GATEWAY] breaker closed, backend recovered")
			}
		}
		return
	}

	if trip {
		b.failures++
		if b.failures >= b.maxFailures && b.state == BreakerClosed {
			b.state = BreakerOpen
			b.openedAt = time.Now()
			b.log.Warn("[GATEWAY] breaker opened",
				"consecutive_failures", b.failures,
				"cooldown", b.cooldown,
			)
		}
		return
	}
	if err == nil {
		b.failures = 0
	}
}
