package narrative

import "strings"

// markerOpeners are the tokens a buffered bracket sequence may grow into.
var markerOpeners = []string{
	itemMarkerPrefix,
	optionMarkerPrefix,
	sceneMarkerPrefix,
	CompletionMarker,
}

// StreamFilter removes markers from text arriving in arbitrary delta
// boundaries. From an opening bracket onward, characters are withheld as long
// as they can still become a marker; a confirmed marker is swallowed, anything
// else is released unchanged. Non-marker bracket text, like "[sic]", passes
// through intact.
//
// The zero value is ready to use. Not safe for concurrent use.
type StreamFilter struct {
	pending strings.Builder
}

// Feed consumes the next delta and returns the text that may be shown now.
// The returned string can be empty while a potential marker is buffered.
func (f *StreamFilter) Feed(delta string) string {
	var out strings.Builder
	for _, r := range delta {
		f.step(r, &out)
	}
	return out.String()
}

func (f *StreamFilter) step(r rune, out *strings.Builder) {
	if f.pending.Len() == 0 {
		if r == '[' {
			f.pending.WriteRune(r)
			return
		}
		out.WriteRune(r)
		return
	}

	f.pending.WriteRune(r)
	buf := f.pending.String()

	if buf == CompletionMarker {
		f.pending.Reset()
		return
	}
	if r == ']' && hasMarkerOpener(buf) {
		f.pending.Reset()
		return
	}
	if viableMarker(buf) {
		return
	}

	// No marker can start here anymore. Release everything buffered before
	// this rune and reconsider the rune itself, which may open a new bracket.
	released := buf[:len(buf)-len(string(r))]
	out.WriteString(released)
	f.pending.Reset()
	if r == '[' {
		f.pending.WriteRune(r)
		return
	}
	out.WriteRune(r)
}

// Flush releases whatever is still buffered. Call once after the final delta;
// a stream ending mid-bracket shows the partial text rather than losing it.
func (f *StreamFilter) Flush() string {
	out := f.pending.String()
	f.pending.Reset()
	return out
}

// hasMarkerOpener reports whether buf begins with one of the prefixed marker
// tokens, i.e. the bracket sequence is certainly a marker.
func hasMarkerOpener(buf string) bool {
	for _, tok := range markerOpeners {
		if tok == CompletionMarker {
			continue
		}
		if strings.HasPrefix(buf, tok) {
			return true
		}
	}
	return false
}

// viableMarker reports whether buf can still grow into a marker.
func viableMarker(buf string) bool {
	for _, tok := range markerOpeners {
		if strings.HasPrefix(tok, buf) || strings.HasPrefix(buf, tok) {
			return true
		}
	}
	return false
}
