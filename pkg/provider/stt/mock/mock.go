// Package mock provides a test double for the stt.Provider interface.
//
// Use Provider to return canned transcription results and inspect the audio
// the caller submitted:
//
//	p := &mock.Provider{Result: &stt.Result{Text: "hello"}}
//	res, _ := p.Transcribe(ctx, pcm, audio.DefaultFormat)
package mock

import (
	"context"
	"sync"

	"github.com/TreasureProject/voxagent/pkg/audio"
	"github.com/TreasureProject/voxagent/pkg/provider/stt"
)

// Ensure Provider implements the stt.Provider interface.
var _ stt.Provider = (*Provider)(nil)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// PCM is the audio passed to Transcribe.
	PCM []byte
	// Format is the audio format passed to Transcribe.
	Format audio.Format
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned from Transcribe when TranscribeErr is nil. If both
	// are nil, Transcribe returns an empty Result.
	Result *stt.Result

	// TranscribeErr, if non-nil, is returned as the error from Transcribe.
	TranscribeErr error

	// TranscribeFunc, if non-nil, overrides the canned Result/TranscribeErr
	// behaviour entirely.
	TranscribeFunc func(ctx context.Context, pcm []byte, format audio.Format) (*stt.Result, error)

	// ProviderName is returned from Name. Defaults to "mock".
	ProviderName string

	// TranscribeCalls records every call to Transcribe.
	TranscribeCalls []TranscribeCall
}

// Transcribe records the call and returns the configured result.
func (p *Provider) Transcribe(ctx context.Context, pcm []byte, format audio.Format) (*stt.Result, error) {
	p.mu.Lock()
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{PCM: pcm, Format: format})
	fn := p.TranscribeFunc
	res, err := p.Result, p.TranscribeErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, pcm, format)
	}
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}
	return &stt.Result{}, nil
}

// Name returns ProviderName, or "mock" when unset.
func (p *Provider) Name() string {
	if p.ProviderName != "" {
		return p.ProviderName
	}
	return "mock"
}

// Calls returns a snapshot of the recorded Transcribe calls.
func (p *Provider) Calls() []TranscribeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TranscribeCall, len(p.TranscribeCalls))
	copy(out, p.TranscribeCalls)
	return out
}
