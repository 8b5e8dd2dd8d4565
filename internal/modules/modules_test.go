package modules

import (
	"context"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/TreasureProject/voxagent/internal/observe"
	"github.com/TreasureProject/voxagent/pkg/audio"
)

// fakeSource is a CaptureSource driven by tests through emit.
type fakeSource struct {
	mu      sync.Mutex
	onChunk func([]byte)
	started bool
	stopped bool
	closed  bool
}

func (f *fakeSource) Start(onChunk func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChunk = onChunk
	f.started = true
	return nil
}

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) emit(chunk []byte) {
	f.mu.Lock()
	fn := f.onChunk
	f.mu.Unlock()
	if fn != nil {
		fn(chunk)
	}
}

var _ audio.CaptureSource = (*fakeSource)(nil)

// fakeSink is a PlaybackSink recording every Play call.
type fakeSink struct {
	mu     sync.Mutex
	plays  [][]byte
	played chan struct{}
	closed bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{played: make(chan struct{}, 16)}
}

func (f *fakeSink) Play(_ context.Context, pcm []byte, _ audio.Format) error {
	f.mu.Lock()
	f.plays = append(f.plays, pcm)
	f.mu.Unlock()
	f.played <- struct{}{}
	return nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSink) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.plays)
}

var _ audio.PlaybackSink = (*fakeSink)(nil)

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}
