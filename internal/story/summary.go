package story

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/federkiel/internal/adventure"
	"github.com/MrWong99/federkiel/pkg/provider/text"
)

const (
	summarySystemPrompt = "Du bist ein Assistent der Text-Adventure Zusammenfassungen erstellt.\n\n" +
		"Fasse das folgende Abenteuer in 2-3 Sätzen zusammen. Erwähne:\n" +
		"- Was passiert ist (Hauptereignisse)\n" +
		"- Welche wichtigen Entscheidungen getroffen wurden\n" +
		"- Wie es endete\n\n" +
		"Schreibe auf Deutsch, in der dritten Person, vergangene Zeit.\n" +
		"Halte es kurz und prägnant (max 50 Wörter)."

	summaryMaxTokens = 200
)

// Summarizer condenses a finished adventure into a few German sentences.
type Summarizer struct {
	provider text.Provider
}

// NewSummarizer returns a Summarizer using provider for generation.
func NewSummarizer(provider text.Provider) *Summarizer {
	return &Summarizer{provider: provider}
}

// GenerateSummary asks the model for a past-tense summary of the full
// adventure history. It returns "" for an empty history.
func (s *Summarizer) GenerateSummary(ctx context.Context, history []adventure.Turn) (string, error) {
	if len(history) == 0 {
		return "", nil
	}

	var transcript strings.Builder
	for _, turn := range history {
		speaker := "Spieler"
		if turn.Role == adventure.RoleNarrator {
			speaker = "Erzähler"
		}
		fmt.Fprintf(&transcript, "%s: %s\n\n", speaker, turn.Text)
	}

	resp, err := s.provider.Complete(ctx, text.CompletionRequest{
		SystemPrompt: summarySystemPrompt,
		Messages: []text.Message{
			{Role: "user", Content: "Fasse dieses Abenteuer zusammen:\n\n" + transcript.String()},
		},
		MaxTokens: summaryMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("story: generate summary: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return strings.TrimSpace(resp.Content), nil
}
