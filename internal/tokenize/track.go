package tokenize

import (
	"subweave/internal/language"
	"subweave/internal/subtitle"
)

// BuildTrack tokenizes every entry and assembles the flat token sequence
// the alignment engine consumes. The tokenization rule is chosen from the
// detected script unless langOverride names a known language. Token spans
// partition the flat sequence in entry order with no gaps.
func BuildTrack(entries []subtitle.Entry, langOverride string) subtitle.Track {
	samples := make([]string, 0, len(entries))
	for _, e := range entries {
		samples = append(samples, e.Text)
	}

	code := language.Normalize(langOverride)
	var spaceSeparated bool
	if code != language.Unknown {
		spaceSeparated = language.SpaceSeparated(code)
	} else {
		info := language.Detect(samples)
		code = info.Code
		spaceSeparated = info.SpaceSeparated
	}

	track := subtitle.Track{
		Entries:        make([]subtitle.Entry, len(entries)),
		Language:       code,
		SpaceSeparated: spaceSeparated,
	}
	styleSeen := make(map[string]struct{})
	for i, e := range entries {
		line := Split(e.Text, spaceSeparated)
		start := len(track.Tokens)
		for _, tok := range line.Tokens {
			track.Tokens = append(track.Tokens, tok.Text)
			track.TokenStyles = append(track.TokenStyles, e.Style)
		}
		e.Span = subtitle.TokenSpan{Start: start, End: len(track.Tokens)}
		track.Entries[i] = e
		if e.Style != "" {
			if _, ok := styleSeen[e.Style]; !ok {
				styleSeen[e.Style] = struct{}{}
				track.StyleNames = append(track.StyleNames, e.Style)
			}
		}
	}
	return track
}
