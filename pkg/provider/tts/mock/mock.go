// Package mock provides a test double for the tts.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/TreasureProject/voxagent/pkg/audio"
	"github.com/TreasureProject/voxagent/pkg/provider/tts"
)

// Ensure Provider implements the tts.Provider interface.
var _ tts.Provider = (*Provider)(nil)

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned from Synthesize when SynthesizeErr is nil. If both
	// are nil, Synthesize returns an empty Result with the default format.
	Result *tts.Result

	// SynthesizeErr, if non-nil, is returned as the error from Synthesize.
	SynthesizeErr error

	// SynthesizeFunc, if non-nil, overrides the canned Result/SynthesizeErr
	// behaviour entirely.
	SynthesizeFunc func(ctx context.Context, text string) (*tts.Result, error)

	// ProviderName is returned from Name. Defaults to "mock".
	ProviderName string

	// Texts records the text of every Synthesize call.
	Texts []string
}

// Synthesize records the call and returns the configured result.
func (p *Provider) Synthesize(ctx context.Context, text string) (*tts.Result, error) {
	p.mu.Lock()
	p.Texts = append(p.Texts, text)
	fn := p.SynthesizeFunc
	res, err := p.Result, p.SynthesizeErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}
	return &tts.Result{Format: audio.DefaultFormat}, nil
}

// Name returns ProviderName, or "mock" when unset.
func (p *Provider) Name() string {
	if p.ProviderName != "" {
		return p.ProviderName
	}
	return "mock"
}

// Calls returns a snapshot of the texts passed to Synthesize.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Texts))
	copy(out, p.Texts)
	return out
}
