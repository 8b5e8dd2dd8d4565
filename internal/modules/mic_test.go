package modules

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/TreasureProject/voxagent/pkg/audio"
	"github.com/TreasureProject/voxagent/pkg/bus"
	"github.com/TreasureProject/voxagent/pkg/event"
	"github.com/TreasureProject/voxagent/pkg/vad"
)

// toneChunk returns 512 samples of a 1600 Hz tone, loud enough to classify
// as speech, phase-continuous across chunk indices.
func toneChunk(i int) []byte {
	samples := make([]int16, 512)
	for j := range samples {
		n := i*512 + j
		samples[j] = int16(8000 * math.Sin(2*math.Pi*1600*float64(n)/16000))
	}
	return audio.Int16ToPCM(samples)
}

func TestMicrophonePublishesSegmentationEvents(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	b := bus.New()
	defer b.Close()

	seg, err := vad.New(vad.Config{
		SampleRate:     16000,
		SilenceTimeout: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("vad.New: %v", err)
	}

	mic, err := NewMicrophone(src, b, seg, nil)
	if err != nil {
		t.Fatalf("NewMicrophone: %v", err)
	}

	starts := b.Subscribe(event.TypeSpeechStart)
	utterances := b.Subscribe(event.TypeAudioReadyForSTT)

	if err := mic.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !src.started {
		t.Fatal("source not started")
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = mic.Run(runCtx)
	}()

	for i := 0; i < 20; i++ {
		src.emit(toneChunk(i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := starts.Receive(ctx); err != nil {
		t.Fatalf("no speech start: %v", err)
	}

	// Let the silence timeout elapse, then feed silence until the analysis
	// window clears and the utterance closes.
	time.Sleep(25 * time.Millisecond)
	silence := make([]byte, 1024)
	for i := 0; i < 20; i++ {
		src.emit(silence)
	}

	got, err := utterances.Receive(ctx)
	if err != nil {
		t.Fatalf("no utterance: %v", err)
	}
	utt, ok := got.(event.AudioReadyForSTT)
	if !ok {
		t.Fatalf("event = %#v, want AudioReadyForSTT", got)
	}
	if len(utt.Audio) == 0 || len(utt.Audio)%1024 != 0 {
		t.Errorf("utterance audio = %d bytes, want a positive multiple of the chunk size", len(utt.Audio))
	}
	if utt.Format.SampleRate != 16000 {
		t.Errorf("format = %+v", utt.Format)
	}

	cancelRun()
	<-runDone
	if err := mic.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !src.stopped || !src.closed {
		t.Error("source not stopped and closed")
	}
}

func TestMicrophoneCallbackNeverBlocks(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	b := bus.New()
	defer b.Close()

	seg, err := vad.New(vad.Config{SampleRate: 16000})
	if err != nil {
		t.Fatalf("vad.New: %v", err)
	}
	mic, err := NewMicrophone(src, b, seg, nil)
	if err != nil {
		t.Fatalf("NewMicrophone: %v", err)
	}
	if err := mic.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// No Run loop draining: emitting far more chunks than the queue holds
	// must return promptly instead of blocking the device thread.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < chunkQueueSize*4; i++ {
			src.emit(make([]byte, 1024))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("device callback blocked")
	}
}

func TestNewMicrophoneValidation(t *testing.T) {
	t.Parallel()
	seg, _ := vad.New(vad.Config{SampleRate: 16000})
	if _, err := NewMicrophone(nil, bus.New(), seg, nil); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := NewMicrophone(&fakeSource{}, nil, seg, nil); err == nil {
		t.Error("expected error for nil bus")
	}
	if _, err := NewMicrophone(&fakeSource{}, bus.New(), nil, nil); err == nil {
		t.Error("expected error for nil segmenter")
	}
}
