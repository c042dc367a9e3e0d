// Package image defines the Provider interface for turn illustrations.
//
// An image provider renders one picture per narrator turn from a prompt
// derived from the scene description. Illustration is best-effort everywhere:
// callers treat a failed generation as a missing picture, never as a failed
// turn.
package image

import "context"

// Image is a generated illustration, carried inline as base64 so it can be
// embedded in a JSON event without a second fetch.
type Image struct {
	// MimeType is the media type of the encoded data, e.g. "image/png".
	MimeType string

	// Base64 is the standard-encoded image data.
	Base64 string

	// Prompt is the prompt the image was generated from.
	Prompt string
}

// Provider is the abstraction over any image-generation backend.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Generate renders one image for the prompt. It blocks until the image is
	// available or ctx is cancelled.
	Generate(ctx context.Context, prompt string) (*Image, error)
}
