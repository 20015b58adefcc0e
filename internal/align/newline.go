package align

import (
	"strings"

	"subweave/internal/subtitle"
	"subweave/internal/tokenize"
)

// cleanBreaks removes the break-marker artifacts of token-level merging:
// markers stranded at either end of a field's text and runs of
// consecutive markers collapse, along with the whitespace hugging them.
// Interior single markers survive. Hard newlines are treated as markers.
func cleanBreaks(text string) string {
	if text == "" {
		return ""
	}
	norm := strings.ReplaceAll(text, "\n", tokenize.BreakMarker)
	segs := strings.Split(norm, tokenize.BreakMarker)
	kept := segs[:0]
	for _, seg := range segs {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			kept = append(kept, seg)
		}
	}
	return strings.Join(kept, tokenize.BreakMarker)
}

// cleanFields applies cleanBreaks to both sides of every field in place.
// With retain set the fields pass through verbatim.
func cleanFields(fields []subtitle.MergedField, retain bool) {
	if retain {
		return
	}
	for i := range fields {
		fields[i].PrimaryText = cleanBreaks(fields[i].PrimaryText)
		fields[i].SecondaryText = cleanBreaks(fields[i].SecondaryText)
	}
}
