package resilience

import (
	"errors"
	"testing"
	"time"
)

// fakeModel is a named story model endpoint that either answers or is down.
type fakeModel struct {
	name string
	down bool
}

func (m *fakeModel) turn() (string, error) {
	if m.down {
		return "", errModelDown
	}
	return "Es war einmal, erzählt von " + m.name + ".", nil
}

func modelGroup(primary, standIn *fakeModel) *FallbackGroup[*fakeModel] {
	fg := NewFallbackGroup(primary, primary.name, FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback(standIn.name, standIn)
	return fg
}

func TestFallbackGroupPrefersPrimary(t *testing.T) {
	fg := modelGroup(
		&fakeModel{name: "anthropic"},
		&fakeModel{name: "mistral"},
	)

	var narrator string
	err := fg.Execute(func(m *fakeModel) error {
		narrator = m.name
		_, err := m.turn()
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if narrator != "anthropic" {
		t.Fatalf("narrator = %q, want anthropic", narrator)
	}
}

func TestFallbackGroupUsesStandInWhenPrimaryDown(t *testing.T) {
	fg := modelGroup(
		&fakeModel{name: "anthropic", down: true},
		&fakeModel{name: "mistral"},
	)

	var story string
	err := fg.Execute(func(m *fakeModel) error {
		text, err := m.turn()
		story = text
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if story != "Es war einmal, erzählt von mistral." {
		t.Fatalf("story = %q, want the stand-in's turn", story)
	}
}

func TestFallbackGroupAllProvidersDown(t *testing.T) {
	fg := modelGroup(
		&fakeModel{name: "anthropic", down: true},
		&fakeModel{name: "mistral", down: true},
	)

	err := fg.Execute(func(m *fakeModel) error {
		_, err := m.turn()
		return err
	})
	if err == nil {
		t.Fatal("expected error when every model is down")
	}
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroupSkipsProviderBehindOpenBreaker(t *testing.T) {
	primary := &fakeModel{name: "anthropic", down: true}
	standIn := &fakeModel{name: "mistral"}
	fg := NewFallbackGroup(primary, primary.name, FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		},
	})
	fg.AddFallback(standIn.name, standIn)

	// Two failed turns open the primary's breaker.
	for range 2 {
		_ = fg.Execute(func(m *fakeModel) error {
			_, err := m.turn()
			return err
		})
	}

	// The primary must now be skipped without a call attempt.
	primary.down = false // would answer, but the breaker is open
	var narrator string
	err := fg.Execute(func(m *fakeModel) error {
		narrator = m.name
		_, err := m.turn()
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if narrator != "mistral" {
		t.Fatalf("narrator = %q, want mistral (anthropic breaker is open)", narrator)
	}
}

// illustrator is an image backend for the ExecuteWithResult tests.
type illustrator struct {
	png []byte
	err error
}

func illustratorGroup(primary, standIn *illustrator) *FallbackGroup[*illustrator] {
	fg := NewFallbackGroup(primary, "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("placeholder", standIn)
	return fg
}

func TestExecuteWithResultReturnsPrimaryImage(t *testing.T) {
	fg := illustratorGroup(
		&illustrator{png: []byte("openai-png")},
		&illustrator{png: []byte("placeholder-png")},
	)

	img, err := ExecuteWithResult(fg, func(i *illustrator) ([]byte, error) {
		return i.png, i.err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(img) != "openai-png" {
		t.Fatalf("image = %q, want the primary's image", img)
	}
}

func TestExecuteWithResultFallsBackForImages(t *testing.T) {
	fg := illustratorGroup(
		&illustrator{err: errors.New("openai: billing hard limit reached")},
		&illustrator{png: []byte("placeholder-png")},
	)

	img, err := ExecuteWithResult(fg, func(i *illustrator) ([]byte, error) {
		return i.png, i.err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(img) != "placeholder-png" {
		t.Fatalf("image = %q, want the placeholder image", img)
	}
}

func TestExecuteWithResultAllFail(t *testing.T) {
	fg := NewFallbackGroup(&illustrator{err: errModelDown}, "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	_, err := ExecuteWithResult(fg, func(i *illustrator) ([]byte, error) {
		return i.png, i.err
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
