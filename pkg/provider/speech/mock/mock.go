// Package mock provides a test double for the speech.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/federkiel/pkg/provider/speech"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Text is the text passed to Synthesize.
	Text string
}

// Provider is a mock implementation of speech.Provider. Zero values cause
// Synthesize to return an immediately closed channel.
type Provider struct {
	mu sync.Mutex

	// Chunks is the sequence of audio chunks emitted on the channel returned
	// by Synthesize. All chunks are sent before the channel is closed.
	Chunks [][]byte

	// Err, if non-nil, is returned as the error from Synthesize instead of
	// starting a channel.
	Err error

	// Gate, if non-nil, is received from before each chunk is sent, letting a
	// test pace the audio stream.
	Gate <-chan struct{}

	// Calls records every invocation of Synthesize in order.
	Calls []SynthesizeCall
}

// Synthesize records the call and returns a channel that emits Chunks.
func (p *Provider) Synthesize(ctx context.Context, text string) (<-chan []byte, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, SynthesizeCall{Ctx: ctx, Text: text})
	if p.Err != nil {
		err := p.Err
		p.mu.Unlock()
		return nil, err
	}
	chunks := make([][]byte, len(p.Chunks))
	copy(chunks, p.Chunks)
	gate := p.Gate
	p.mu.Unlock()

	ch := make(chan []byte, len(chunks))
	go func() {
		defer close(ch)
		for _, c := range chunks {
			if gate != nil {
				select {
				case <-gate:
				case <-ctx.Done():
					return
				}
			}
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

// Ensure Provider implements speech.Provider at compile time.
var _ speech.Provider = (*Provider)(nil)
