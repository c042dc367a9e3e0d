package stream

import "strings"

// Record is one server-sent event: the event name plus the joined data lines.
type Record struct {
	// Event is the event name, "message" when the record carries none.
	Event string

	// Data is the record's data lines joined with newlines.
	Data string
}

// recordParser turns a byte stream into SSE records. Network reads land in
// arbitrary places, so the parser buffers across Feed calls: records are
// separated by a blank line, and a trailing partial record stays buffered
// until the separator or Flush arrives.
type recordParser struct {
	buf strings.Builder
}

// Feed consumes the next piece of the stream and returns every record it
// completes.
func (p *recordParser) Feed(chunk string) []Record {
	p.buf.WriteString(chunk)
	text := p.buf.String()

	parts := strings.Split(text, "\n\n")
	if len(parts) == 1 {
		return nil
	}
	p.buf.Reset()
	p.buf.WriteString(parts[len(parts)-1])

	var records []Record
	for _, part := range parts[:len(parts)-1] {
		if rec, ok := parseRecord(part); ok {
			records = append(records, rec)
		}
	}
	return records
}

// Flush parses whatever is still buffered. Call once at end of stream; a
// final record without a trailing separator is delivered rather than lost.
func (p *recordParser) Flush() []Record {
	text := p.buf.String()
	p.buf.Reset()
	if rec, ok := parseRecord(text); ok {
		return []Record{rec}
	}
	return nil
}

// parseRecord interprets one record's lines. Comment lines (leading colon)
// and unknown fields are ignored per the SSE format; a record without data
// lines is dropped.
func parseRecord(part string) (Record, bool) {
	rec := Record{Event: "message"}
	var data []string
	sawData := false

	for _, line := range strings.Split(part, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.HasPrefix(line, "event:"):
			rec.Event = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(line[len("data:"):], " "))
			sawData = true
		}
	}
	if !sawData {
		return Record{}, false
	}
	rec.Data = strings.Join(data, "\n")
	return rec, true
}
