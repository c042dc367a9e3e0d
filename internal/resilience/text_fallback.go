package resilience

import (
	"context"

	"github.com/MrWong99/federkiel/pkg/provider/text"
)

// TextFallback implements [text.Provider] with automatic failover across
// multiple narration backends. Each backend has its own circuit breaker; when
// the primary fails or its breaker is open, the next healthy fallback is
// tried. With a single entry it still shields the server from hammering a
// failing model API.
type TextFallback struct {
	group *FallbackGroup[text.Provider]
}

// Compile-time interface assertion.
var _ text.Provider = (*TextFallback)(nil)

// NewTextFallback creates a [TextFallback] with primary as the preferred
// backend.
func NewTextFallback(primary text.Provider, primaryName string, cfg FallbackConfig) *TextFallback {
	return &TextFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional text provider as a fallback.
func (f *TextFallback) AddFallback(name string, provider text.Provider) {
	f.group.AddFallback(name, provider)
}

// StreamCompletion sends the request to the first healthy provider and returns
// a streaming chunk channel. Only the initial connection attempt is covered by
// failover; once a stream is established, mid-stream errors surface as chunks
// with FinishReason "error" and are the caller's responsibility.
func (f *TextFallback) StreamCompletion(ctx context.Context, req text.CompletionRequest) (<-chan text.Chunk, error) {
	return ExecuteWithResult(f.group, func(p text.Provider) (<-chan text.Chunk, error) {
		return p.StreamCompletion(ctx, req)
	})
}

// Complete sends the request to the first healthy provider and returns its
// response. If the primary fails, subsequent fallbacks are tried.
func (f *TextFallback) Complete(ctx context.Context, req text.CompletionRequest) (*text.CompletionResponse, error) {
	return ExecuteWithResult(f.group, func(p text.Provider) (*text.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}
