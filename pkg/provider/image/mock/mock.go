// Package mock provides a test double for the image.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/federkiel/pkg/provider/image"
)

// Provider is a mock implementation of image.Provider.
type Provider struct {
	mu sync.Mutex

	// Image is returned by Generate. May be nil (returns nil, nil).
	Image *image.Image

	// Err, if non-nil, is returned as the error from Generate.
	Err error

	// Prompts records the prompt of every Generate call in order.
	Prompts []string
}

// Generate records the call and returns Image, Err.
func (p *Provider) Generate(_ context.Context, prompt string) (*image.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Prompts = append(p.Prompts, prompt)
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Image, nil
}

// Ensure Provider implements image.Provider at compile time.
var _ image.Provider = (*Provider)(nil)
