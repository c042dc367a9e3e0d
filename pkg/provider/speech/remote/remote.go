// Package remote provides a speech provider backed by a running story
// server. Instead of talking to a synthesis API directly, it posts the text
// to the server's /api/tts endpoint and forwards the streamed audio. This is
// what the game client uses, so provider credentials stay on the server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MrWong99/federkiel/internal/wire"
	"github.com/MrWong99/federkiel/pkg/provider/speech"
)

// readChunkSize is how much of the HTTP response body is handed to the audio
// channel at a time.
const readChunkSize = 8 * 1024

// Option is a functional option for configuring the remote Provider.
type Option func(*Provider)

// WithPassword sets the X-App-Password header sent on every request.
func WithPassword(password string) Option {
	return func(p *Provider) {
		p.password = password
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements speech.Provider by delegating synthesis to the story
// server.
type Provider struct {
	baseURL    string
	password   string
	httpClient *http.Client
}

// New creates a provider for the server at baseURL (no trailing slash).
func New(baseURL string, opts ...Option) (*Provider, error) {
	if baseURL == "" {
		return nil, errors.New("remote: baseURL must not be empty")
	}
	p := &Provider{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Synthesize implements speech.Provider via POST /api/tts. The audio/mpeg
// response body is forwarded to the returned channel in playback order as it
// arrives.
func (p *Provider) Synthesize(ctx context.Context, text string) (<-chan []byte, error) {
	if text == "" {
		return nil, errors.New("remote: text must not be empty")
	}

	body, err := json.Marshal(wire.TTSRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("remote: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/tts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	if p.password != "" {
		req.Header.Set("X-App-Password", p.password)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: synthesize: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("remote: synthesize: unexpected status %d: %s", resp.StatusCode, detail)
	}

	audioCh := make(chan []byte, 32)
	go func() {
		defer close(audioCh)
		defer resp.Body.Close()

		buf := make([]byte, readChunkSize)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case audioCh <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	return audioCh, nil
}

var _ speech.Provider = (*Provider)(nil)
