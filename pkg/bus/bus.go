// Package bus provides the in-process publish/subscribe broker that
// decouples voxagent's pipeline modules. Every subscriber gets its own
// ordered delivery queue (fan-out, not load-balancing), and one default
// queue receives every published event regardless of type — that queue
// feeds the supervisor's dispatch loop.
//
// Queues are bounded channels with an explicit overflow policy so a stalled
// subscriber can neither block publishers nor grow memory without bound.
// The default policy drops the oldest queued event; drops are counted per
// queue and logged on first occurrence.
//
// All methods are safe for concurrent use.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/TreasureProject/voxagent/pkg/event"
)

// ErrClosed is returned by receive operations after the bus has been closed
// and the queue fully drained.
var ErrClosed = errors.New("bus: closed")

// defaultCapacity is the per-queue buffer size used when no capacity option
// is supplied.
const defaultCapacity = 256

// OverflowPolicy selects what Publish does when a delivery queue is full.
type OverflowPolicy string

const (
	// DropOldest evicts the oldest queued event to make room for the new
	// one. Subscribers lose history, never recency. This is the default.
	DropOldest OverflowPolicy = "drop_oldest"

	// DropNewest discards the event being published for that queue only.
	DropNewest OverflowPolicy = "drop_newest"

	// Block waits until the queue has room. A stalled subscriber will stall
	// its publishers; use only when losing events is worse than backpressure.
	Block OverflowPolicy = "block"
)

// IsValid reports whether p is a recognised overflow policy.
func (p OverflowPolicy) IsValid() bool {
	switch p {
	case DropOldest, DropNewest, Block:
		return true
	}
	return false
}

// Subscription is one subscriber's private delivery queue. Events arrive in
// publish order; no other queue's consumption rate affects this one.
type Subscription struct {
	name     string
	ch       chan event.Event
	dropped  atomic.Int64
	warnOnce sync.Once
}

// Receive blocks until an event is available, the subscription's bus is
// closed (ErrClosed), or ctx is done (ctx.Err()).
func (s *Subscription) Receive(ctx context.Context) (event.Event, error) {
	select {
	case ev, ok := <-s.ch:
		if !ok {
			return nil, ErrClosed
		}
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Events exposes the delivery queue for select-based consumers. The channel
// is closed when the bus is closed.
func (s *Subscription) Events() <-chan event.Event { return s.ch }

// Dropped returns the number of events this queue has lost to its overflow
// policy since subscription.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

// Option configures a [Bus] during construction.
type Option func(*Bus)

// WithCapacity sets the per-queue buffer size. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// WithPolicy sets the overflow policy applied to all queues.
// Invalid policies are ignored.
func WithPolicy(p OverflowPolicy) Option {
	return func(b *Bus) {
		if p.IsValid() {
			b.policy = p
		}
	}
}

// WithDropHandler installs a callback invoked once per dropped event with
// the queue name. Used to feed drop counters into metrics. The callback runs
// on the publisher's goroutine and must be fast.
func WithDropHandler(fn func(queue string)) Option {
	return func(b *Bus) { b.onDrop = fn }
}

// Bus is the broker. Create with [New]; the default queue exists from
// construction so no early events are lost to the dispatch loop.
type Bus struct {
	capacity int
	policy   OverflowPolicy
	onDrop   func(queue string)

	mu     sync.RWMutex
	subs   map[string][]*Subscription
	def    *Subscription
	closed bool

	closeOnce sync.Once
}

// New creates a Bus with the supplied options.
func New(opts ...Option) *Bus {
	b := &Bus{
		capacity: defaultCapacity,
		policy:   DropOldest,
		subs:     make(map[string][]*Subscription),
	}
	for _, o := range opts {
		o(b)
	}
	b.def = &Subscription{name: "default", ch: make(chan event.Event, b.capacity)}
	return b
}

// Subscribe registers a new delivery queue for the given event type and
// returns it. Each subscriber gets an independent queue: every event of that
// type reaches every subscriber, in publish order per queue.
func (b *Bus) Subscribe(eventType string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		name: fmt.Sprintf("%s[%d]", eventType, len(b.subs[eventType])),
		ch:   make(chan event.Event, b.capacity),
	}
	b.subs[eventType] = append(b.subs[eventType], sub)
	return sub
}

// Publish delivers ev to every queue subscribed to ev.Type() and to the
// default queue. Publishing to a type with no subscribers still reaches the
// default queue. Publishing on a closed bus is a no-op.
func (b *Bus) Publish(ev event.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, sub := range b.subs[ev.Type()] {
		b.deliver(sub, ev)
	}
	b.deliver(b.def, ev)
}

// ReceiveAny blocks until any published event is available on the default
// queue. Used by the supervisor's dispatch loop.
func (b *Bus) ReceiveAny(ctx context.Context) (event.Event, error) {
	return b.def.Receive(ctx)
}

// Close shuts the bus down: subsequent Publish calls are no-ops and all
// delivery channels are closed once drained of in-flight sends. Safe to call
// more than once.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		b.closed = true
		for _, subs := range b.subs {
			for _, sub := range subs {
				close(sub.ch)
			}
		}
		close(b.def.ch)
	})
}

// deliver applies the overflow policy for a single queue. Must be called
// with b.mu held (read lock suffices; channel operations provide their own
// synchronisation).
func (b *Bus) deliver(sub *Subscription, ev event.Event) {
	if b.policy == Block {
		sub.ch <- ev
		return
	}

	select {
	case sub.ch <- ev:
		return
	default:
	}

	if b.policy == DropOldest {
		// Evict one, then retry. A concurrent receiver may have made room,
		// in which case nothing is evicted.
		select {
		case <-sub.ch:
			b.noteDrop(sub)
		default:
		}
		select {
		case sub.ch <- ev:
			return
		default:
		}
	}

	// DropNewest, or the retry above lost the race.
	b.noteDrop(sub)
}

func (b *Bus) noteDrop(sub *Subscription) {
	sub.dropped.Add(1)
	sub.warnOnce.Do(func() {
		slog.Warn("event queue overflow, events are being dropped",
			"queue", sub.name,
			"capacity", b.capacity,
			"policy", string(b.policy),
		)
	})
	if b.onDrop != nil {
		b.onDrop(sub.name)
	}
}
