package align

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"subweave/internal/subtitle"
)

func TestExtractNonOverlapPartition(t *testing.T) {
	input := []subtitle.Entry{
		{Start: 0, End: 1000, Text: "disjoint before"},
		{Start: 1500, End: 2500, Text: "full overlap"},
		{Start: 2900, End: 3500, Text: "partial overlap"},
		{Start: 4000, End: 5000, Text: "touching only"},
		{Start: 9000, End: 9500, Text: "disjoint after"},
	}
	ref := []subtitle.Entry{
		{Start: 1500, End: 3000},
		{Start: 3600, End: 4000},
	}

	nonOverlap, residual := extractNonOverlap(input, ref)

	wantNon := []string{"disjoint before", "touching only", "disjoint after"}
	wantRes := []string{"full overlap", "partial overlap"}
	gotNon := entryTexts(nonOverlap)
	gotRes := entryTexts(residual)
	if diff := cmp.Diff(wantNon, gotNon); diff != "" {
		t.Fatalf("non-overlap list (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("residual list (-want +got):\n%s", diff)
	}
	if len(nonOverlap)+len(residual) != len(input) {
		t.Fatalf("partition lost or duplicated entries: %d + %d != %d",
			len(nonOverlap), len(residual), len(input))
	}
}

func TestExtractNonOverlapEmptyReference(t *testing.T) {
	input := []subtitle.Entry{{Start: 0, End: 1000, Text: "a"}}
	nonOverlap, residual := extractNonOverlap(input, nil)
	if len(nonOverlap) != 1 || len(residual) != 0 {
		t.Fatalf("got %d/%d, want all entries in the non-overlap list", len(nonOverlap), len(residual))
	}
}

func entryTexts(entries []subtitle.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Text)
	}
	return out
}

func TestCompactTrackRemapsSpans(t *testing.T) {
	track := subtitle.Track{
		Tokens:      []string{"t0", "t1", "t2", "t3", "t4", "t5"},
		TokenStyles: []string{"A", "A", "B", "B", "C", "C"},
	}
	removed := []subtitle.Entry{
		{Span: subtitle.TokenSpan{Start: 0, End: 2}},
		{Span: subtitle.TokenSpan{Start: 4, End: 5}},
	}
	residual := []subtitle.Entry{
		{Text: "kept a", Span: subtitle.TokenSpan{Start: 2, End: 4}},
		{Text: "kept b", Span: subtitle.TokenSpan{Start: 5, End: 6}},
	}

	tokens, styles, remapped := compactTrack(track, removed, residual)

	if diff := cmp.Diff([]string{"t2", "t3", "t5"}, tokens); diff != "" {
		t.Fatalf("tokens (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"B", "B", "C"}, styles); diff != "" {
		t.Fatalf("styles (-want +got):\n%s", diff)
	}
	wantSpans := []subtitle.TokenSpan{{Start: 0, End: 2}, {Start: 2, End: 3}}
	for i, e := range remapped {
		if e.Span != wantSpans[i] {
			t.Fatalf("entry %d span = %+v, want %+v", i, e.Span, wantSpans[i])
		}
	}
}

func TestPlaceholderFields(t *testing.T) {
	entries := []subtitle.Entry{{Start: 100, End: 200, Text: "solo", Style: "Top"}}
	pri := placeholderFields(entries, true)
	if pri[0].PrimaryText != "solo" || pri[0].SecondaryText != "" || pri[0].PrimaryStyle != "Top" {
		t.Fatalf("primary placeholder wrong: %+v", pri[0])
	}
	sec := placeholderFields(entries, false)
	if sec[0].SecondaryText != "solo" || sec[0].PrimaryText != "" || sec[0].SecondaryStyle != "Top" {
		t.Fatalf("secondary placeholder wrong: %+v", sec[0])
	}
	if sec[0].Start != 100 || sec[0].End != 200 {
		t.Fatalf("placeholder timing wrong: %+v", sec[0])
	}
}
