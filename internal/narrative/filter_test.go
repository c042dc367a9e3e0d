package narrative

import (
	"strings"
	"testing"
)

// runFilter feeds the text in chunks of the given size and returns everything
// the filter released, flush included.
func runFilter(t *testing.T, text string, chunkSize int) string {
	t.Helper()
	var f StreamFilter
	var out strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out.WriteString(f.Feed(string(runes[i:end])))
	}
	out.WriteString(f.Flush())
	return out.String()
}

func TestStreamFilterHidesMarkers(t *testing.T) {
	text := "Du findest etwas. [NEUER GEGENSTAND: Karte | Eine alte Karte] Es raschelt.[ABENTEUER ABGESCHLOSSEN]"
	want := "Du findest etwas.  Es raschelt."
	// Every chunking must produce the same visible text.
	for _, size := range []int{1, 2, 3, 7, len(text)} {
		if got := runFilter(t, text, size); got != want {
			t.Errorf("chunk size %d: got %q, want %q", size, got, want)
		}
	}
}

func TestStreamFilterPassesOrdinaryBrackets(t *testing.T) {
	text := "Auf dem Schild steht [Eintritt verboten] in krakeliger Schrift."
	for _, size := range []int{1, 4, len(text)} {
		if got := runFilter(t, text, size); got != text {
			t.Errorf("chunk size %d: got %q, want unchanged", size, got)
		}
	}
}

func TestStreamFilterMarkerSplitAcrossDeltas(t *testing.T) {
	var f StreamFilter
	var out strings.Builder
	out.WriteString(f.Feed("Die Truhe öffnet sich. [NEUER GEGEN"))
	out.WriteString(f.Feed("STAND: Ring | Ein schlichter Ring] Fertig."))
	out.WriteString(f.Flush())
	if got := out.String(); got != "Die Truhe öffnet sich.  Fertig." {
		t.Errorf("got %q", got)
	}
}

func TestStreamFilterReleasesNonViablePrefix(t *testing.T) {
	var f StreamFilter
	got := f.Feed("[NEUE Regel] gilt ab sofort.") + f.Flush()
	if got != "[NEUE Regel] gilt ab sofort." {
		t.Errorf("got %q", got)
	}
}

func TestStreamFilterBracketInsideReleasedBuffer(t *testing.T) {
	// The rune that breaks viability may itself open a new marker.
	var f StreamFilter
	got := f.Feed("[N[OPTION: fliehen]x") + f.Flush()
	if got != "[Nx" {
		t.Errorf("got %q", got)
	}
}

func TestStreamFilterFlushReleasesPartial(t *testing.T) {
	var f StreamFilter
	if got := f.Feed("Ende [NEUER GEGEN"); got != "Ende " {
		t.Fatalf("Feed released %q", got)
	}
	if got := f.Flush(); got != "[NEUER GEGEN" {
		t.Errorf("Flush() = %q", got)
	}
	// Flush resets the filter.
	if got := f.Flush(); got != "" {
		t.Errorf("second Flush() = %q", got)
	}
}

func TestStreamFilterOptionAndScene(t *testing.T) {
	text := "Text davor.[OPTION: gehen][SZENE: Nebel über dem See]Text danach."
	if got := runFilter(t, text, 1); got != "Text davor.Text danach." {
		t.Errorf("got %q", got)
	}
}
