package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/federkiel/pkg/provider/text"
	textmock "github.com/MrWong99/federkiel/pkg/provider/text/mock"
)

func TestTextFallback_Complete_PrimarySuccess(t *testing.T) {
	primary := &textmock.Provider{
		CompleteResponse: &text.CompletionResponse{Content: "hello from primary"},
	}
	secondary := &textmock.Provider{
		CompleteResponse: &text.CompletionResponse{Content: "hello from secondary"},
	}

	fb := NewTextFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Complete(context.Background(), text.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello from primary" {
		t.Fatalf("content = %q, want 'hello from primary'", resp.Content)
	}
	if len(primary.CompleteCalls) != 1 {
		t.Fatalf("primary called %d times, want 1", len(primary.CompleteCalls))
	}
	if len(secondary.CompleteCalls) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.CompleteCalls))
	}
}

func TestTextFallback_Complete_Failover(t *testing.T) {
	primary := &textmock.Provider{CompleteErr: errors.New("model overloaded")}
	secondary := &textmock.Provider{
		CompleteResponse: &text.CompletionResponse{Content: "hello from secondary"},
	}

	fb := NewTextFallback(primary, "primary", FallbackConfig{})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Complete(context.Background(), text.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello from secondary" {
		t.Fatalf("content = %q, want 'hello from secondary'", resp.Content)
	}
	if len(primary.CompleteCalls) != 1 || len(secondary.CompleteCalls) != 1 {
		t.Fatalf("calls = %d/%d, want 1/1",
			len(primary.CompleteCalls), len(secondary.CompleteCalls))
	}
}

func TestTextFallback_Complete_AllFail(t *testing.T) {
	primary := &textmock.Provider{CompleteErr: errors.New("down")}
	secondary := &textmock.Provider{CompleteErr: errors.New("also down")}

	fb := NewTextFallback(primary, "primary", FallbackConfig{})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Complete(context.Background(), text.CompletionRequest{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("error = %v, want ErrAllFailed", err)
	}
}

func TestTextFallback_StreamCompletion_Failover(t *testing.T) {
	primary := &textmock.Provider{StreamErr: errors.New("connect refused")}
	secondary := &textmock.Provider{
		StreamChunks: []text.Chunk{
			{Text: "Es war einmal"},
			{FinishReason: "stop"},
		},
	}

	fb := NewTextFallback(primary, "primary", FallbackConfig{})
	fb.AddFallback("secondary", secondary)

	ch, err := fb.StreamCompletion(context.Background(), text.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got string
	for chunk := range ch {
		got += chunk.Text
	}
	if got != "Es war einmal" {
		t.Fatalf("streamed text = %q", got)
	}
}

func TestTextFallback_OpenBreakerSkipsPrimary(t *testing.T) {
	primary := &textmock.Provider{CompleteErr: errors.New("down")}
	secondary := &textmock.Provider{
		CompleteResponse: &text.CompletionResponse{Content: "ok"},
	}

	fb := NewTextFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1},
	})
	fb.AddFallback("secondary", secondary)

	// First call trips the primary's breaker; the second must skip it.
	for range 2 {
		if _, err := fb.Complete(context.Background(), text.CompletionRequest{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(primary.CompleteCalls) != 1 {
		t.Fatalf("primary called %d times, want 1 (breaker open)", len(primary.CompleteCalls))
	}
	if len(secondary.CompleteCalls) != 2 {
		t.Fatalf("secondary called %d times, want 2", len(secondary.CompleteCalls))
	}
}
