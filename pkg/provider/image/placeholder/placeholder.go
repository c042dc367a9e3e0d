// Package placeholder provides an image provider that always returns the same
// tiny picture. It stands in when no image backend is configured, so the rest
// of the pipeline still sees well-formed image events.
package placeholder

import (
	"context"

	"github.com/MrWong99/federkiel/pkg/provider/image"
)

// pixel is a 1x1 transparent PNG.
const pixel = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// Provider implements image.Provider with a constant image.
type Provider struct{}

// New returns a placeholder provider.
func New() *Provider {
	return &Provider{}
}

// Generate implements image.Provider. It never fails.
func (p *Provider) Generate(_ context.Context, prompt string) (*image.Image, error) {
	return &image.Image{
		MimeType: "image/png",
		Base64:   pixel,
		Prompt:   prompt,
	}, nil
}

// Ensure Provider implements image.Provider at compile time.
var _ image.Provider = (*Provider)(nil)
