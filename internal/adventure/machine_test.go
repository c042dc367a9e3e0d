package adventure

import (
	"errors"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestStartRejectsSecondAdventure(t *testing.T) {
	m := NewMachine(NewPlayer())
	if err := m.Start(); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if err := m.Start(); !errors.Is(err, ErrAdventureActive) {
		t.Fatalf("second Start: got %v, want ErrAdventureActive", err)
	}
}

func TestTurnAlternation(t *testing.T) {
	m := NewMachine(NewPlayer())

	if err := m.RecordPlayerTurn("hallo"); !errors.Is(err, ErrNoAdventure) {
		t.Fatalf("player turn without adventure: got %v, want ErrNoAdventure", err)
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.RecordNarratorTurn("..."); !errors.Is(err, ErrAwaitingPlayer) {
		t.Fatalf("narrator first: got %v, want ErrAwaitingPlayer", err)
	}
	if err := m.RecordPlayerTurn("Ich öffne die Tür."); err != nil {
		t.Fatalf("player turn failed: %v", err)
	}
	if err := m.RecordPlayerTurn("Nochmal."); !errors.Is(err, ErrAwaitingNarrator) {
		t.Fatalf("double player turn: got %v, want ErrAwaitingNarrator", err)
	}
	if !m.AwaitingNarrator() {
		t.Error("AwaitingNarrator = false after player turn")
	}
	if err := m.RecordNarratorTurn("Die Tür knarrt."); err != nil {
		t.Fatalf("narrator turn failed: %v", err)
	}
	if m.AwaitingNarrator() {
		t.Error("AwaitingNarrator = true after narrator turn")
	}
	if got := m.Player().Current.Turns(); got != 1 {
		t.Errorf("Turns() = %d, want 1", got)
	}
}

func TestRollbackLastTurn(t *testing.T) {
	m := NewMachine(NewPlayer())
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.RecordPlayerTurn("eins"); err != nil {
		t.Fatalf("player turn failed: %v", err)
	}
	if err := m.RecordNarratorTurn("antwort"); err != nil {
		t.Fatalf("narrator turn failed: %v", err)
	}
	if err := m.RecordPlayerTurn("zwei"); err != nil {
		t.Fatalf("player turn failed: %v", err)
	}

	m.RollbackLastTurn()
	if got := len(m.Player().Current.History); got != 2 {
		t.Fatalf("history length after rollback = %d, want 2", got)
	}

	// A second rollback must not eat the narrator turn.
	m.RollbackLastTurn()
	if got := len(m.Player().Current.History); got != 2 {
		t.Fatalf("history length after no-op rollback = %d, want 2", got)
	}
}

func TestAddItemDeduplicates(t *testing.T) {
	m := NewMachine(NewPlayer())
	if !m.AddItem("Zauberstab", "Elfenbeinweiß, 28 cm") {
		t.Fatal("first AddItem returned false")
	}
	if m.AddItem("Zauberstab", "ein anderer Stab") {
		t.Fatal("duplicate AddItem returned true")
	}
	inv := m.Player().Inventory
	if len(inv) != 1 {
		t.Fatalf("inventory length = %d, want 1", len(inv))
	}
	if inv[0].Description != "Elfenbeinweiß, 28 cm" {
		t.Errorf("duplicate overwrote description: %q", inv[0].Description)
	}
}

func TestSetTitleKeepsFirst(t *testing.T) {
	m := NewMachine(NewPlayer())
	if err := m.SetTitle("Titel"); !errors.Is(err, ErrNoAdventure) {
		t.Fatalf("SetTitle without adventure: got %v, want ErrNoAdventure", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.SetTitle("Der verbotene Korridor"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}
	if err := m.SetTitle("Anderer Titel"); err != nil {
		t.Fatalf("second SetTitle failed: %v", err)
	}
	if got := m.Player().Current.Title; got != "Der verbotene Korridor" {
		t.Errorf("title = %q, want first title kept", got)
	}
}

func TestCompleteAdvancesStatsAndClears(t *testing.T) {
	now := time.Date(2025, 3, 14, 20, 0, 0, 0, time.UTC)
	m := NewMachine(NewPlayer())
	m.now = fixedClock(now)

	if err := m.Complete("zu früh"); !errors.Is(err, ErrNoAdventure) {
		t.Fatalf("Complete without adventure: got %v, want ErrNoAdventure", err)
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := m.RecordPlayerTurn("zug"); err != nil {
			t.Fatalf("player turn failed: %v", err)
		}
		if err := m.RecordNarratorTurn("antwort"); err != nil {
			t.Fatalf("narrator turn failed: %v", err)
		}
	}
	if err := m.SetTitle("Die Kammer"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}
	if err := m.Complete("Harry fand die Kammer."); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	p := m.Player()
	if p.Current != nil {
		t.Error("Current not cleared after Complete")
	}
	if p.Stats.AdventuresCompleted != 1 {
		t.Errorf("AdventuresCompleted = %d, want 1", p.Stats.AdventuresCompleted)
	}
	if p.Stats.TotalTurns != 3 {
		t.Errorf("TotalTurns = %d, want 3", p.Stats.TotalTurns)
	}
	if len(p.CompletedAdventures) != 1 {
		t.Fatalf("CompletedAdventures length = %d, want 1", len(p.CompletedAdventures))
	}
	got := p.CompletedAdventures[0]
	if got.Title != "Die Kammer" || got.Summary != "Harry fand die Kammer." {
		t.Errorf("completed entry = %+v", got)
	}
	if !got.CompletedAt.Equal(now) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, now)
	}
}

func TestCompleteUntitledUsesDateFallback(t *testing.T) {
	now := time.Date(2025, 3, 14, 20, 0, 0, 0, time.UTC)
	m := NewMachine(NewPlayer())
	m.now = fixedClock(now)

	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Complete(""); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	got := m.Player().CompletedAdventures[0].Title
	if got != "Abenteuer vom 14.03.2025" {
		t.Errorf("fallback title = %q", got)
	}
}

func TestAbandonLeavesStatsUntouched(t *testing.T) {
	m := NewMachine(NewPlayer())
	if err := m.Abandon(); !errors.Is(err, ErrNoAdventure) {
		t.Fatalf("Abandon without adventure: got %v, want ErrNoAdventure", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.RecordPlayerTurn("zug"); err != nil {
		t.Fatalf("player turn failed: %v", err)
	}
	if err := m.Abandon(); err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}
	p := m.Player()
	if p.Current != nil {
		t.Error("Current not cleared after Abandon")
	}
	if p.Stats.AdventuresCompleted != 0 || p.Stats.TotalTurns != 0 {
		t.Errorf("stats advanced on abandon: %+v", p.Stats)
	}
	if len(p.CompletedAdventures) != 0 {
		t.Errorf("abandoned adventure recorded as completed")
	}
}

func TestLastNarratorText(t *testing.T) {
	m := NewMachine(NewPlayer())
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := m.Player().Current.LastNarratorText(); got != "" {
		t.Errorf("LastNarratorText on empty history = %q", got)
	}
	if err := m.RecordPlayerTurn("a"); err != nil {
		t.Fatalf("player turn failed: %v", err)
	}
	if err := m.RecordNarratorTurn("erste Antwort"); err != nil {
		t.Fatalf("narrator turn failed: %v", err)
	}
	if err := m.RecordPlayerTurn("b"); err != nil {
		t.Fatalf("player turn failed: %v", err)
	}
	if got := m.Player().Current.LastNarratorText(); got != "erste Antwort" {
		t.Errorf("LastNarratorText = %q, want %q", got, "erste Antwort")
	}
}
