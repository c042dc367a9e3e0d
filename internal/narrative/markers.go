// Package narrative extracts and removes the inline control markers the story
// model embeds in its German prose: discovered items, suggested actions, the
// scene description, and the adventure completion signal. It also carries the
// incremental filter that keeps partially streamed markers out of the visible
// text.
package narrative

import "strings"

// The marker vocabulary. Markers are emitted verbatim by the model and never
// localized, so matching is literal.
const (
	itemMarkerPrefix   = "[NEUER GEGENSTAND:"
	optionMarkerPrefix = "[OPTION:"
	sceneMarkerPrefix  = "[SZENE:"
	CompletionMarker   = "[ABENTEUER ABGESCHLOSSEN]"
)

// markerKind discriminates the marker grammar's productions.
type markerKind int

const (
	markerItem markerKind = iota
	markerOption
	markerScene
	markerCompleted
)

// marker is one recognized occurrence in the input. start and end are byte
// offsets of the whole bracket sequence. For items, name and body carry the
// two payload halves and split reports whether the "|" separator was present.
type marker struct {
	kind  markerKind
	name  string
	body  string
	split bool
	start int
	end   int
}

// scanMarkers walks text once, left to right, and calls visit for every
// marker. The grammar is: the completion token matched literally, or a known
// prefix followed by a payload running to the first closing bracket. An
// unclosed marker, or a bracket that opens none of the known prefixes, is
// plain text and is skipped over, not an error.
func scanMarkers(text string, visit func(marker)) {
	for i := 0; i < len(text); {
		if text[i] != '[' {
			i++
			continue
		}
		m, ok := scanMarkerAt(text, i)
		if !ok {
			i++
			continue
		}
		visit(m)
		i = m.end
	}
}

// scanMarkerAt reads the marker whose opening bracket sits at start.
func scanMarkerAt(text string, start int) (marker, bool) {
	rest := text[start:]
	if strings.HasPrefix(rest, CompletionMarker) {
		return marker{kind: markerCompleted, start: start, end: start + len(CompletionMarker)}, true
	}

	var kind markerKind
	var prefix string
	switch {
	case strings.HasPrefix(rest, itemMarkerPrefix):
		kind, prefix = markerItem, itemMarkerPrefix
	case strings.HasPrefix(rest, optionMarkerPrefix):
		kind, prefix = markerOption, optionMarkerPrefix
	case strings.HasPrefix(rest, sceneMarkerPrefix):
		kind, prefix = markerScene, sceneMarkerPrefix
	default:
		return marker{}, false
	}

	end := strings.IndexByte(rest[len(prefix):], ']')
	if end < 0 {
		return marker{}, false
	}
	payload := rest[len(prefix) : len(prefix)+end]

	m := marker{kind: kind, start: start, end: start + len(prefix) + end + 1}
	if kind == markerItem {
		name, desc, ok := strings.Cut(payload, "|")
		m.name = strings.TrimSpace(name)
		m.body = strings.TrimSpace(desc)
		m.split = ok
	} else {
		m.body = strings.TrimSpace(payload)
	}
	return m, true
}

// Item is a discovered object announced by an item marker.
type Item struct {
	Name        string
	Description string
}

// Items returns every well-formed item marker in text, in order. Markers
// missing the "|" separator, or with an empty name or description after
// trimming, are skipped.
func Items(text string) []Item {
	var items []Item
	scanMarkers(text, func(m marker) {
		if m.kind != markerItem || !m.split || m.name == "" || m.body == "" {
			return
		}
		items = append(items, Item{Name: m.name, Description: m.body})
	})
	return items
}

// Options returns the suggested player actions announced by option markers.
func Options(text string) []string {
	var opts []string
	scanMarkers(text, func(m marker) {
		if m.kind == markerOption && m.body != "" {
			opts = append(opts, m.body)
		}
	})
	return opts
}

// Scene returns the scene description from the first non-empty scene marker,
// or "" if the text carries none.
func Scene(text string) string {
	scene := ""
	scanMarkers(text, func(m marker) {
		if scene == "" && m.kind == markerScene && m.body != "" {
			scene = m.body
		}
	})
	return scene
}

// Completed reports whether the text carries the completion marker.
func Completed(text string) bool {
	return strings.Contains(text, CompletionMarker)
}
