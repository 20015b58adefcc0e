package align

import "subweave/internal/subtitle"

// extractNonOverlap partitions entries into those whose time interval has
// zero intersection with every reference interval, and the residual that
// still needs semantic alignment. Entries that touch or partially overlap
// any reference interval are conservatively routed to alignment. The two
// outputs together contain every input entry exactly once.
func extractNonOverlap(input, ref []subtitle.Entry) (nonOverlap, residual []subtitle.Entry) {
	refIdx := 0
	for _, e := range input {
		// References are time-ordered; skip those that end before this
		// entry starts. They cannot overlap it or anything after it.
		for refIdx < len(ref) && ref[refIdx].End <= e.Start {
			refIdx++
		}
		overlaps := false
		for j := refIdx; j < len(ref) && ref[j].Start < e.End; j++ {
			if subtitle.Overlaps(e.Start, e.End, ref[j].Start, ref[j].End) {
				overlaps = true
				break
			}
		}
		if overlaps {
			residual = append(residual, e)
		} else {
			nonOverlap = append(nonOverlap, e)
		}
	}
	return nonOverlap, residual
}

// compactTrack removes the tokens owned by the extracted entries from the
// flat token sequence and remaps the residual entries' spans into the
// compacted index space.
func compactTrack(track subtitle.Track, removed, residual []subtitle.Entry) (tokens, styles []string, remapped []subtitle.Entry) {
	drop := make([]bool, len(track.Tokens))
	for _, e := range removed {
		for i := e.Span.Start; i < e.Span.End && i < len(drop); i++ {
			drop[i] = true
		}
	}

	// shift[i] is the number of dropped tokens at indices < i.
	shift := make([]int, len(track.Tokens)+1)
	for i, d := range drop {
		shift[i+1] = shift[i]
		if d {
			shift[i+1]++
		}
	}

	tokens = make([]string, 0, len(track.Tokens)-shift[len(track.Tokens)])
	styles = make([]string, 0, cap(tokens))
	for i, tok := range track.Tokens {
		if drop[i] {
			continue
		}
		tokens = append(tokens, tok)
		styles = append(styles, track.TokenStyles[i])
	}

	remapped = make([]subtitle.Entry, len(residual))
	for i, e := range residual {
		e.Span = subtitle.TokenSpan{
			Start: e.Span.Start - shift[e.Span.Start],
			End:   e.Span.End - shift[e.Span.End],
		}
		remapped[i] = e
	}
	return tokens, styles, remapped
}

// placeholderFields converts extracted entries into carry-over merged
// fields. Primary entries keep their text on the primary side; secondary
// entries surface at their own timing with an empty primary side.
func placeholderFields(entries []subtitle.Entry, primarySide bool) []subtitle.MergedField {
	fields := make([]subtitle.MergedField, 0, len(entries))
	for _, e := range entries {
		f := subtitle.MergedField{Start: e.Start, End: e.End}
		if primarySide {
			f.PrimaryText = e.Text
			f.PrimaryStyle = e.Style
		} else {
			f.SecondaryText = e.Text
			f.SecondaryStyle = e.Style
		}
		fields = append(fields, f)
	}
	return fields
}
