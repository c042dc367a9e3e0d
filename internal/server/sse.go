package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// errNoFlusher is returned when the response writer cannot stream.
var errNoFlusher = errors.New("server: response writer does not support flushing")

// sseWriter writes server-sent events and flushes after each one so the
// client sees events as they happen.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

// newSSEWriter prepares w for an SSE response and writes the stream headers.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, errNoFlusher
	}
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &sseWriter{w: w, f: f}, nil
}

// Send writes one event with a JSON-encoded payload.
func (s *sseWriter) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("server: encode %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("server: write %s event: %w", event, err)
	}
	s.f.Flush()
	return nil
}
