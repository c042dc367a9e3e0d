package story

import "strings"

const (
	imageStylePrefix = "Stimmungsvolle, detailreiche Fantasy-Illustration im Stil klassischer Buchkunst. " +
		"Weiches Licht, klare Komposition, keine Texte oder Logos. " +
		"Keine Personen oder Charaktere zeigen; keine Porträts. " +
		"Zeige nur Landschaften, Orte, Gegenstände oder Gegner/Kreaturen/Tiere. Szene: "

	imageFallbackLimit = 220

	defaultScene = "Hogwarts bei Nacht, magische Atmosphäre"
)

// BuildImagePrompt composes the illustration prompt for a turn. The scene
// marker wins; without one, the first non-empty line of the story text is
// used, clamped to a sane prompt length; an empty turn falls back to a stock
// Hogwarts scene.
func BuildImagePrompt(scene, storyText string) string {
	s := strings.TrimSpace(scene)
	if s == "" {
		s = fallbackScene(storyText)
	}
	if s == "" {
		s = defaultScene
	}
	return imageStylePrefix + s
}

func fallbackScene(storyText string) string {
	for _, line := range strings.Split(storyText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if runes := []rune(line); len(runes) > imageFallbackLimit {
			line = strings.TrimSpace(string(runes[:imageFallbackLimit]))
		}
		return line
	}
	return ""
}
