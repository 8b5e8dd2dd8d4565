package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedGateway returns the queued errors in order, then succeeds.
type scriptedGateway struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (g *scriptedGateway) Chat(context.Context, Request) (*Reply, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &Reply{Text: "ok"}, nil
}

func (g *scriptedGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()
	gw := &scriptedGateway{errs: []error{ErrTransport, ErrTransport, ErrTransport}}
	b := NewBreaker(gw, BreakerConfig{MaxFailures: 3, Cooldown: time.Hour}, nil)

	for i := 0; i < 3; i++ {
		if _, err := b.Chat(context.Background(), Request{Message: "hi"}); !errors.Is(err, ErrTransport) {
			t.Fatalf("call %d: err = %v, want ErrTransport", i, err)
		}
	}
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("state = %v, want open", got)
	}

	// The open breaker must not touch the backend.
	if _, err := b.Chat(context.Background(), Request{Message: "hi"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if gw.callCount() != 3 {
		t.Errorf("backend calls = %d, want 3", gw.callCount())
	}
}

func TestBreaker_PaymentErrorsDoNotTrip(t *testing.T) {
	t.Parallel()
	gw := &scriptedGateway{errs: []error{ErrPayment, ErrPayment, ErrPayment, ErrPayment}}
	b := NewBreaker(gw, BreakerConfig{MaxFailures: 2, Cooldown: time.Hour}, nil)

	for i := 0; i < 4; i++ {
		if _, err := b.Chat(context.Background(), Request{Message: "hi"}); !errors.Is(err, ErrPayment) {
			t.Fatalf("call %d: err = %v, want ErrPayment", i, err)
		}
	}
	if got := b.State(); got != BreakerClosed {
		t.Errorf("state = %v, want closed", got)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()
	gw := &scriptedGateway{errs: []error{ErrTransport, nil, ErrTransport}}
	b := NewBreaker(gw, BreakerConfig{MaxFailures: 2, Cooldown: time.Hour}, nil)

	b.Chat(context.Background(), Request{Message: "a"})
	b.Chat(context.Background(), Request{Message: "b"})
	b.Chat(context.Background(), Request{Message: "c"})

	if got := b.State(); got != BreakerClosed {
		t.Errorf("state = %v, want closed", got)
	}
}

func TestBreaker_ClosesAfterSuccessfulProbe(t *testing.T) {
	t.Parallel()
	gw := &scriptedGateway{errs: []error{ErrTimeout, ErrTimeout}}
	b := NewBreaker(gw, BreakerConfig{MaxFailures: 2, Cooldown: 10 * time.Millisecond}, nil)

	b.Chat(context.Background(), Request{Message: "a"})
	b.Chat(context.Background(), Request{Message: "b"})
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("state = %v, want open", got)
	}

	time.Sleep(20 * time.Millisecond)
	if got := b.State(); got != BreakerHalfOpen {
		t.Fatalf("state = %v, want half-open after cooldown", got)
	}

	reply, err := b.Chat(context.Background(), Request{Message: "probe"})
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if reply.Text != "ok" {
		t.Errorf("probe reply = %q", reply.Text)
	}
	if got := b.State(); got != BreakerClosed {
		t.Errorf("state = %v, want closed after probe", got)
	}
}

func TestBreaker_ReopensWhenProbeFails(t *testing.T) {
	t.Parallel()
	gw := &scriptedGateway{errs: []error{ErrTransport, ErrTransport, ErrTransport}}
	b := NewBreaker(gw, BreakerConfig{MaxFailures: 2, Cooldown: 10 * time.Millisecond}, nil)

	b.Chat(context.Background(), Request{Message: "a"})
	b.Chat(context.Background(), Request{Message: "b"})

	time.Sleep(20 * time.Millisecond)
	if _, err := b.Chat(context.Background(), Request{Message: "probe"}); !errors.Is(err, ErrTransport) {
		t.Fatalf("probe err = %v, want ErrTransport", err)
	}
	if got := b.State(); got != BreakerOpen {
		t.Errorf("state = %v, want open after failed probe", got)
	}
	if _, err := b.Chat(context.Background(), Request{Message: "after"}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}
