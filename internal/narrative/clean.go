package narrative

import "strings"

var markdownChars = strings.NewReplacer("*", "", "_", "", "`", "")

// Clean strips every marker from text, collapses the blank-line runs the
// removal leaves behind, and trims surrounding whitespace. The result is what
// the player sees and what gets spoken.
func Clean(text string) string {
	var out strings.Builder
	last := 0
	scanMarkers(text, func(m marker) {
		out.WriteString(text[last:m.start])
		last = m.end
	})
	out.WriteString(text[last:])
	return strings.TrimSpace(collapseBlankRuns(out.String()))
}

// collapseBlankRuns caps consecutive newlines at two, so removed marker lines
// do not leave gaping holes in the prose.
func collapseBlankRuns(text string) string {
	var out strings.Builder
	out.Grow(len(text))
	newlines := 0
	for _, r := range text {
		if r == '\n' {
			newlines++
			if newlines > 2 {
				continue
			}
		} else {
			newlines = 0
		}
		out.WriteRune(r)
	}
	return out.String()
}

// StripMarkdown removes the emphasis characters the model sometimes produces
// despite being told not to. Asterisks, underscores and backticks are dropped
// wholesale; German prose has no legitimate use for them.
func StripMarkdown(text string) string {
	return markdownChars.Replace(text)
}
