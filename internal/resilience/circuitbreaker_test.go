package resilience

import (
	"errors"
	"testing"
	"time"
)

// errModelDown stands in for an upstream model API refusing a narrator turn.
var errModelDown = errors.New("anthropic: stream setup failed: 529 overloaded")

// flakyNarrator fails its first failUntil turns and recovers afterwards.
type flakyNarrator struct {
	calls     int
	failUntil int
}

func (n *flakyNarrator) tell() error {
	n.calls++
	if n.calls <= n.failUntil {
		return errModelDown
	}
	return nil
}

func TestCircuitBreakerDefaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "anthropic"})
	if cb.maxFailures != 5 {
		t.Errorf("maxFailures = %d, want 5", cb.maxFailures)
	}
	if cb.resetTimeout != 30*time.Second {
		t.Errorf("resetTimeout = %v, want 30s", cb.resetTimeout)
	}
	if cb.halfOpenMax != 3 {
		t.Errorf("halfOpenMax = %d, want 3", cb.halfOpenMax)
	}
	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
}

func TestClosedBreakerForwardsTurns(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "anthropic", MaxFailures: 3})
	narrator := &flakyNarrator{}

	if err := cb.Execute(narrator.tell); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if narrator.calls != 1 {
		t.Fatalf("narrator.calls = %d, want 1", narrator.calls)
	}
}

func TestBreakerOpensWhenModelStaysDown(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "anthropic",
		MaxFailures:  3,
		ResetTimeout: time.Hour, // keep it open for the whole test
	})
	narrator := &flakyNarrator{failUntil: 99}

	for range 3 {
		_ = cb.Execute(narrator.tell)
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open after 3 failed turns", cb.State())
	}

	// The next turn must be rejected without touching the model API.
	err := cb.Execute(narrator.tell)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if narrator.calls != 3 {
		t.Fatalf("narrator.calls = %d, want 3 (open breaker must not call)", narrator.calls)
	}
}

func TestSuccessfulTurnClearsFailureStreak(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "anthropic", MaxFailures: 3})

	// Two failed turns, then the model answers again.
	narrator := &flakyNarrator{failUntil: 2}
	for range 3 {
		_ = cb.Execute(narrator.tell)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after recovery", cb.State())
	}

	// The streak restarted, so two fresh failures are not enough to open.
	broken := &flakyNarrator{failUntil: 99}
	_ = cb.Execute(broken.tell)
	_ = cb.Execute(broken.tell)
	if cb.State() != StateClosed {
		t.Fatal("state = open, want closed after only 2 failures post-recovery")
	}
}

func TestOpenBreakerTurnsHalfOpenAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "anthropic",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  2,
	})
	narrator := &flakyNarrator{failUntil: 99}

	_ = cb.Execute(narrator.tell)
	_ = cb.Execute(narrator.tell)
	if cb.State() != StateOpen {
		t.Fatal("expected open")
	}

	time.Sleep(15 * time.Millisecond)

	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open after reset timeout", cb.State())
	}
}

func TestHalfOpenBreakerClosesWhenModelRecovers(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "anthropic",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  2,
	})

	// The API is down for exactly two turns, then comes back.
	narrator := &flakyNarrator{failUntil: 2}
	_ = cb.Execute(narrator.tell)
	_ = cb.Execute(narrator.tell)

	time.Sleep(15 * time.Millisecond)

	for i := range 2 {
		if err := cb.Execute(narrator.tell); err != nil {
			t.Fatalf("trial turn %d: unexpected error: %v", i, err)
		}
	}

	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after successful trial turns", cb.State())
	}
}

func TestHalfOpenBreakerReopensWhenModelStillDown(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "anthropic",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  3,
	})
	narrator := &flakyNarrator{failUntil: 99}

	_ = cb.Execute(narrator.tell)
	_ = cb.Execute(narrator.tell)

	time.Sleep(15 * time.Millisecond)

	if err := cb.Execute(narrator.tell); err == nil {
		t.Fatal("expected error from failing trial turn")
	}

	// lastFailure was just refreshed, so the stored state is open again.
	cb.mu.Lock()
	s := cb.state
	cb.mu.Unlock()
	if s != StateOpen {
		t.Fatalf("state = %v, want open after failed trial turn", s)
	}
}

func TestResetReadmitsTurnsImmediately(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "anthropic",
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})

	broken := &flakyNarrator{failUntil: 99}
	_ = cb.Execute(broken.tell)
	_ = cb.Execute(broken.tell)
	if cb.State() != StateOpen {
		t.Fatal("expected open")
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after reset", cb.State())
	}

	recovered := &flakyNarrator{}
	if err := cb.Execute(recovered.tell); err != nil {
		t.Fatalf("unexpected error after reset: %v", err)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
