package subtitle

// TokenSpan is a half-open index range [Start, End) into a track's flat
// token sequence.
type TokenSpan struct {
	Start int
	End   int
}

// Len returns the number of tokens covered by the span.
func (s TokenSpan) Len() int {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// Empty reports whether the span covers no tokens.
func (s TokenSpan) Empty() bool { return s.Len() == 0 }

// Entry is one timed unit of a subtitle track. Start and End are
// milliseconds. Span is assigned during tokenization and identifies the
// tokens this entry owns within the track's flat token sequence.
type Entry struct {
	Start int64
	End   int64
	Text  string
	Style string
	Span  TokenSpan
}

// Duration returns the entry duration in milliseconds.
func (e Entry) Duration() int64 { return e.End - e.Start }

// Overlaps reports whether two time intervals share any instant. Touching
// endpoints (a.End == b.Start) do not count as overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int64) bool {
	return aStart < bEnd && bStart < aEnd
}

// Track is a tokenized subtitle track: the ordered entries plus the flat
// token sequence they partition. TokenStyles carries the style identifier
// of the entry each token came from, index-aligned with Tokens.
type Track struct {
	Entries        []Entry
	Tokens         []string
	TokenStyles    []string
	Language       string
	SpaceSeparated bool
	StyleNames     []string
}

// Empty reports whether the track has no entries.
func (t Track) Empty() bool { return len(t.Entries) == 0 }
