package story

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/federkiel/pkg/provider/text"
)

const (
	titlePrompt    = "Gib diesem Harry Potter Abenteuer einen kurzen, spannenden deutschen Titel (max 5 Wörter, ohne Anführungszeichen):\n\n"
	titleMaxWords  = 5
	titleMaxTokens = 50
)

// trailingStopwords are German function words a clamped title must not end
// on. "Die Kammer des" reads like a cut-off; "Die Kammer" does not.
var trailingStopwords = map[string]bool{
	"der": true, "die": true, "das": true, "den": true, "dem": true,
	"des": true, "ein": true, "eine": true, "einer": true, "eines": true,
	"einem": true, "ist": true, "im": true, "in": true, "am": true,
	"an": true, "und": true, "oder": true, "zur": true, "zum": true,
	"von": true, "vom": true, "mit": true, "für": true, "fur": true,
	"auf": true, "aus": true, "bei": true, "über": true, "uber": true,
	"unter": true, "ohne": true,
}

// Titler generates adventure titles from the opening narration.
type Titler struct {
	provider text.Provider
}

// NewTitler returns a Titler using provider for generation.
func NewTitler(provider text.Provider) *Titler {
	return &Titler{provider: provider}
}

// GenerateTitle asks the model for a title over the given narrator texts and
// sanitizes the reply. It returns "" when no usable title came back.
func (t *Titler) GenerateTitle(ctx context.Context, narratorTexts []string) (string, error) {
	if len(narratorTexts) == 0 {
		return "", nil
	}

	resp, err := t.provider.Complete(ctx, text.CompletionRequest{
		Messages: []text.Message{
			{Role: "user", Content: titlePrompt + strings.Join(narratorTexts, "\n")},
		},
		MaxTokens: titleMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("story: generate title: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return sanitizeTitle(resp.Content), nil
}

// sanitizeTitle normalizes a model reply into a displayable title: first line
// only, quotes and heading markers stripped, a "Titel:" prefix removed, at
// most titleMaxWords words, and no trailing stopword after clamping.
func sanitizeTitle(response string) string {
	cleaned := strings.NewReplacer("\"", "", "'", "").Replace(strings.TrimSpace(response))
	if cleaned == "" {
		return ""
	}

	firstLine := cleaned
	if i := strings.IndexAny(cleaned, "\r\n"); i >= 0 {
		firstLine = cleaned[:i]
	}
	firstLine = strings.TrimSpace(firstLine)
	firstLine = strings.TrimLeft(firstLine, "#")
	firstLine = strings.TrimSpace(firstLine)

	lower := strings.ToLower(firstLine)
	switch {
	case strings.HasPrefix(lower, "titel:"):
		firstLine = strings.TrimSpace(firstLine[len("titel:"):])
	case strings.HasPrefix(lower, "title:"):
		firstLine = strings.TrimSpace(firstLine[len("title:"):])
	}

	words := strings.Fields(firstLine)
	if len(words) == 0 {
		return ""
	}
	if len(words) <= titleMaxWords {
		return strings.Join(words, " ")
	}

	limited := words[:titleMaxWords]
	for len(limited) > 0 && trailingStopwords[strings.ToLower(limited[len(limited)-1])] {
		limited = limited[:len(limited)-1]
	}
	if len(limited) == 0 {
		return strings.Join(words, " ")
	}
	return strings.Join(limited, " ")
}
