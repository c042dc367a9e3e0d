// Package openai provides an image provider backed by the OpenAI image API
// via github.com/openai/openai-go.
package openai

import (
	"context"
	"errors"
	"fmt"

	openailib "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/federkiel/pkg/provider/image"
)

const defaultModel = openailib.ImageModelDallE3

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the image model (e.g., "dall-e-3", "gpt-image-1").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL points the client at a different endpoint. Used in tests and
// for OpenAI-compatible gateways.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.requestOpts = append(p.requestOpts, option.WithBaseURL(url))
	}
}

// Provider implements image.Provider backed by the OpenAI image API.
type Provider struct {
	client      openailib.Client
	model       string
	requestOpts []option.RequestOption
}

// New creates a new Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai: apiKey must not be empty")
	}
	p := &Provider{model: defaultModel}
	p.requestOpts = append(p.requestOpts, option.WithAPIKey(apiKey))
	for _, o := range opts {
		o(p)
	}
	p.client = openailib.NewClient(p.requestOpts...)
	return p, nil
}

// Generate implements image.Provider.
func (p *Provider) Generate(ctx context.Context, prompt string) (*image.Image, error) {
	if prompt == "" {
		return nil, errors.New("openai: prompt must not be empty")
	}

	resp, err := p.client.Images.Generate(ctx, openailib.ImageGenerateParams{
		Prompt:         prompt,
		Model:          p.model,
		N:              openailib.Int(1),
		Size:           openailib.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openailib.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: generate image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("openai: empty image response")
	}

	return &image.Image{
		MimeType: "image/png",
		Base64:   resp.Data[0].B64JSON,
		Prompt:   prompt,
	}, nil
}

// Ensure Provider implements image.Provider at compile time.
var _ image.Provider = (*Provider)(nil)
