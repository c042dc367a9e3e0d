// Package stream implements the client side of the story streaming protocol:
// an SSE consumer with duplicate suppression, request supersession and a
// single-shot fallback when streaming is unavailable.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/MrWong99/federkiel/internal/wire"
)

// netFailureMessage is shown to the player when both the stream and the
// fallback request fail.
const netFailureMessage = "Netzwerkfehler beim Laden der Geschichte."

// Event is one update surfaced to the turn orchestrator. Exactly one of the
// payload fields matching Type is set.
type Event struct {
	// Type is one of wire.EventDelta, wire.EventFinal, wire.EventImage,
	// wire.EventImageError, wire.EventError. The protocol's final_text and
	// final names are both surfaced as wire.EventFinal.
	Type string

	// Delta is the next visible text fragment (EventDelta).
	Delta string

	// Assistant is the complete turn outcome (EventFinal).
	Assistant *wire.AssistantReply

	// Image is the turn illustration (EventImage).
	Image *wire.ImagePayload

	// Err describes the failure (EventError, EventImageError).
	Err *wire.ErrorPayload
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpc = c
	}
}

// WithPassword sets the X-App-Password header sent on every request.
func WithPassword(password string) Option {
	return func(cl *Client) {
		cl.password = password
	}
}

// WithLogger replaces the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(cl *Client) {
		cl.log = log
	}
}

// Client talks to the story server. At most one turn request is live at a
// time: starting a new one supersedes the previous request, whose remaining
// events are dropped. Safe for concurrent use.
type Client struct {
	baseURL  string
	password string
	httpc    *http.Client
	log      *slog.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewClient creates a client for the server at baseURL (no trailing slash).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{},
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// StreamTurn sends the turn request and returns a channel of events for it.
// The channel is closed when the turn is over, the request is superseded, or
// ctx is cancelled. A previous in-flight turn is cancelled immediately.
//
// The channel always ends after a terminal event: one final, or one error.
// Image events may follow the final event; error events never do.
func (c *Client) StreamTurn(ctx context.Context, req *wire.TurnRequest) <-chan Event {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer cancel()
		c.run(ctx, seq, req, events)
	}()
	return events
}

// Cancel aborts the in-flight turn request, if any. Its event channel closes
// without further events.
func (c *Client) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// current reports whether seq is still the live request.
func (c *Client) current(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq == seq
}

// deliver sends ev unless the request has been superseded or cancelled.
// It returns false when the caller should stop producing events.
func (c *Client) deliver(ctx context.Context, seq uint64, events chan<- Event, ev Event) bool {
	if !c.current(seq) {
		c.log.Debug("dropping event from superseded request", "type", ev.Type)
		return false
	}
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) run(ctx context.Context, seq uint64, req *wire.TurnRequest, events chan<- Event) {
	body, err := json.Marshal(req)
	if err != nil {
		c.deliver(ctx, seq, events, errorEvent(wire.CodeStreamClientError, netFailureMessage))
		return
	}

	done, streamErr := c.consumeStream(ctx, seq, body, events)
	if done {
		return
	}
	if ctx.Err() != nil {
		return
	}

	c.log.Warn("story stream unavailable, falling back to single request", "error", streamErr)
	c.fallback(ctx, seq, body, events)
}

// consumeStream runs the SSE request. It returns done=true when a terminal
// event was delivered (or the request went stale), and done=false with the
// reason when the fallback should run.
func (c *Client) consumeStream(ctx context.Context, seq uint64, body []byte, events chan<- Event) (done bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/story/stream", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("stream: build request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("stream: connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("stream: unexpected status %d", resp.StatusCode)
	}
	if id := resp.Header.Get("X-Request-Id"); id != "" {
		c.log.Debug("story stream opened", "requestId", id)
	}

	var (
		parser   recordParser
		sawFinal bool
		sawImage bool
		sawError bool
	)
	handle := func(rec Record) bool {
		return c.handleRecord(ctx, seq, rec, events, &sawFinal, &sawImage, &sawError)
	}

	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, rec := range parser.Feed(string(buf[:n])) {
				if !handle(rec) {
					return true, nil
				}
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				if ctx.Err() != nil {
					return true, nil
				}
				if sawFinal || sawError {
					return true, nil
				}
				return false, fmt.Errorf("stream: read: %w", readErr)
			}
			break
		}
	}

	// End of stream: a last record may lack the trailing separator.
	for _, rec := range parser.Flush() {
		if !handle(rec) {
			return true, nil
		}
	}
	if sawFinal || sawError {
		return true, nil
	}
	return false, fmt.Errorf("stream: ended without terminal event")
}

// handleRecord interprets one SSE record, applying duplicate suppression:
// the first terminal text event wins and the first image wins, later ones
// are logged and skipped. It returns false when event delivery should stop.
func (c *Client) handleRecord(ctx context.Context, seq uint64, rec Record, events chan<- Event, sawFinal, sawImage, sawError *bool) bool {
	switch rec.Event {
	case wire.EventDelta:
		if *sawFinal {
			return true
		}
		var ev wire.DeltaEvent
		if err := json.Unmarshal([]byte(rec.Data), &ev); err != nil {
			c.log.Debug("malformed delta event skipped", "error", err)
			return true
		}
		return c.deliver(ctx, seq, events, Event{Type: wire.EventDelta, Delta: ev.Text})

	case wire.EventFinal, wire.EventFinalText:
		if *sawFinal {
			c.log.Warn("duplicate terminal event skipped", "event", rec.Event)
			return true
		}
		var ev wire.FinalEvent
		if err := json.Unmarshal([]byte(rec.Data), &ev); err != nil {
			c.log.Warn("malformed terminal event skipped", "error", err)
			return true
		}
		*sawFinal = true
		return c.deliver(ctx, seq, events, Event{Type: wire.EventFinal, Assistant: &ev.Assistant})

	case wire.EventImage:
		if *sawImage {
			c.log.Warn("duplicate image event skipped")
			return true
		}
		var ev wire.ImageEvent
		if err := json.Unmarshal([]byte(rec.Data), &ev); err != nil {
			c.log.Warn("malformed image event skipped", "error", err)
			return true
		}
		*sawImage = true
		return c.deliver(ctx, seq, events, Event{Type: wire.EventImage, Image: &ev.Image})

	case wire.EventImageError:
		var ev wire.ErrorEvent
		if err := json.Unmarshal([]byte(rec.Data), &ev); err != nil {
			return true
		}
		return c.deliver(ctx, seq, events, Event{Type: wire.EventImageError, Err: &ev.Error})

	case wire.EventError:
		var ev wire.ErrorEvent
		if err := json.Unmarshal([]byte(rec.Data), &ev); err != nil {
			ev.Error = wire.ErrorPayload{Code: wire.CodeStreamClientError, Message: netFailureMessage}
		}
		*sawError = true
		return c.deliver(ctx, seq, events, Event{Type: wire.EventError, Err: &ev.Error})

	default:
		// Heartbeats and unknown event types are ignored.
		return true
	}
}

// fallback performs the single-shot request and surfaces its body as one
// final event. When it fails too, the turn ends with one error event.
func (c *Client) fallback(ctx context.Context, seq uint64, body []byte, events chan<- Event) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/story", bytes.NewReader(body))
	if err != nil {
		c.deliver(ctx, seq, events, errorEvent(wire.CodeStreamClientError, netFailureMessage))
		return
	}
	c.setHeaders(httpReq)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.log.Error("story fallback request failed", "error", err)
		c.deliver(ctx, seq, events, errorEvent(wire.CodeStreamClientError, netFailureMessage))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		c.log.Error("story fallback request rejected", "status", resp.StatusCode)
		c.deliver(ctx, seq, events, errorEvent(wire.CodeStreamHTTPError, netFailureMessage))
		return
	}

	var final wire.FinalEvent
	if err := json.NewDecoder(resp.Body).Decode(&final); err != nil {
		c.log.Error("story fallback response malformed", "error", err)
		c.deliver(ctx, seq, events, errorEvent(wire.CodeStreamClientError, netFailureMessage))
		return
	}
	c.deliver(ctx, seq, events, Event{Type: wire.EventFinal, Assistant: &final.Assistant})
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.password != "" {
		req.Header.Set("X-App-Password", c.password)
	}
}

func errorEvent(code, message string) Event {
	return Event{Type: wire.EventError, Err: &wire.ErrorPayload{Code: code, Message: message}}
}
