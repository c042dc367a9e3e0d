package resilience

import (
	"context"

	"github.com/MrWong99/federkiel/pkg/provider/image"
)

// ImageFallback implements [image.Provider] with automatic failover across
// multiple illustration backends. The typical setup is a real image API as the
// primary and the static placeholder as the last fallback, so a turn is never
// left without a picture just because the API is down.
type ImageFallback struct {
	group *FallbackGroup[image.Provider]
}

// Compile-time interface assertion.
var _ image.Provider = (*ImageFallback)(nil)

// NewImageFallback creates an [ImageFallback] with primary as the preferred
// backend.
func NewImageFallback(primary image.Provider, primaryName string, cfg FallbackConfig) *ImageFallback {
	return &ImageFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional image provider as a fallback.
func (f *ImageFallback) AddFallback(name string, provider image.Provider) {
	f.group.AddFallback(name, provider)
}

// Generate renders the prompt with the first healthy provider.
func (f *ImageFallback) Generate(ctx context.Context, prompt string) (*image.Image, error) {
	return ExecuteWithResult(f.group, func(p image.Provider) (*image.Image, error) {
		return p.Generate(ctx, prompt)
	})
}
