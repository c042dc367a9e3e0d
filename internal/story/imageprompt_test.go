package story

import (
	"strings"
	"testing"
)

func TestBuildImagePromptPrefersScene(t *testing.T) {
	got := BuildImagePrompt("Nebliger See vor dem Schloss", "Du stehst am Ufer.")
	if !strings.HasSuffix(got, "Szene: Nebliger See vor dem Schloss") {
		t.Errorf("prompt = %q", got)
	}
	if !strings.HasPrefix(got, "Stimmungsvolle, detailreiche Fantasy-Illustration") {
		t.Errorf("prompt missing style prefix: %q", got)
	}
}

func TestBuildImagePromptFallsBackToFirstLine(t *testing.T) {
	got := BuildImagePrompt("", "\n\nDu betrittst die Große Halle.\nKerzen schweben über dir.")
	if !strings.HasSuffix(got, "Szene: Du betrittst die Große Halle.") {
		t.Errorf("prompt = %q", got)
	}
}

func TestBuildImagePromptClampsLongFallback(t *testing.T) {
	long := strings.Repeat("ö", 300)
	got := BuildImagePrompt("", long)
	scene := got[len(imageStylePrefix):]
	if runes := []rune(scene); len(runes) != imageFallbackLimit {
		t.Errorf("fallback scene length = %d runes, want %d", len(runes), imageFallbackLimit)
	}
}

func TestBuildImagePromptDefaultScene(t *testing.T) {
	got := BuildImagePrompt("", "   ")
	if !strings.HasSuffix(got, "Szene: Hogwarts bei Nacht, magische Atmosphäre") {
		t.Errorf("prompt = %q", got)
	}
}
