package align

import (
	"context"
	"testing"

	"subweave/internal/subtitle"
)

func defaultExtendedOptions() extendedOptions {
	return extendedOptions{
		alignThreshold: DefaultAlignThreshold,
		trimThreshold:  DefaultTrimThreshold,
		stayProb:       DefaultHMMStayProb,
		emitProb:       DefaultHMMEmitProb,
	}
}

func TestSmoothMaskSuppressesIsolatedFlips(t *testing.T) {
	cases := []struct {
		name string
		in   []bool
		want []bool
	}{
		{"single dip", []bool{true, true, false, true, true}, []bool{true, true, true, true, true}},
		{"single spike", []bool{false, false, true, false, false}, []bool{false, false, false, false, false}},
		{"long run survives", []bool{true, false, false, false, false, true}, []bool{true, false, false, false, false, true}},
		{"all matched", []bool{true, true, true}, []bool{true, true, true}},
		{"empty", nil, nil},
	}
	for _, tc := range cases {
		got := smoothMask(tc.in, DefaultHMMStayProb, DefaultHMMEmitProb)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: length %d, want %d", tc.name, len(got), len(tc.want))
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s: bit %d = %v, want %v", tc.name, i, got[i], tc.want[i])
			}
		}
	}
}

func TestExtractExtendedPeelsUnmatchedRun(t *testing.T) {
	vocab := map[string][]float64{
		"opening scene": {1, 0, 0}, "scene initiale": {1, 0, 0},
		"closing scene": {0, 1, 0}, "scene finale": {0, 1, 0},
	}
	sc := newScorer(testEmbedder(vocab), DefaultBatchSize, nil)
	fields := []subtitle.MergedField{
		{Start: 0, End: 1000, PrimaryText: "opening scene", SecondaryText: "scene initiale"},
		{Start: 1000, End: 2000, PrimaryText: "bonus one", Seq: 1},
		{Start: 2000, End: 3000, PrimaryText: "bonus two", Seq: 2},
		{Start: 3000, End: 4000, PrimaryText: "bonus three", Seq: 3},
		{Start: 4000, End: 5000, PrimaryText: "closing scene", SecondaryText: "scene finale", Seq: 4},
	}
	remaining, extended, err := extractExtended(context.Background(), sc, StageExtended, fields, defaultExtendedOptions())
	if err != nil {
		t.Fatalf("extractExtended: %v", err)
	}
	if len(remaining) != 2 || len(extended) != 3 {
		t.Fatalf("got %d remaining, %d extended; want 2, 3", len(remaining), len(extended))
	}
	for _, f := range extended {
		if f.SecondaryText != "" || len(f.SecondarySpans) != 0 {
			t.Fatalf("extended field %q still carries secondary content", f.PrimaryText)
		}
	}
	if remaining[0].PrimaryText != "opening scene" || remaining[1].PrimaryText != "closing scene" {
		t.Fatalf("wrong fields remained: %q, %q", remaining[0].PrimaryText, remaining[1].PrimaryText)
	}
}

func TestExtractExtendedTrimsBorderlineEdges(t *testing.T) {
	// The first entry of the unmatched run still resembles its matched
	// neighbor's secondary text, so it is a borderline match and must be
	// pushed back into the alignment pool.
	vocab := map[string][]float64{
		"opening scene": {1, 0, 0}, "scene initiale": {1, 0, 0},
		"closing scene": {0, 1, 0}, "scene finale": {0, 1, 0},
		"borderline": {0.8, 0, 0.6},
	}
	sc := newScorer(testEmbedder(vocab), DefaultBatchSize, nil)
	fields := []subtitle.MergedField{
		{Start: 0, End: 1000, PrimaryText: "opening scene", SecondaryText: "scene initiale"},
		{Start: 1000, End: 2000, PrimaryText: "borderline", Seq: 1},
		{Start: 2000, End: 3000, PrimaryText: "bonus one", Seq: 2},
		{Start: 3000, End: 4000, PrimaryText: "bonus two", Seq: 3},
		{Start: 4000, End: 5000, PrimaryText: "bonus three", Seq: 4},
		{Start: 5000, End: 6000, PrimaryText: "closing scene", SecondaryText: "scene finale", Seq: 5},
	}
	remaining, extended, err := extractExtended(context.Background(), sc, StageExtended, fields, defaultExtendedOptions())
	if err != nil {
		t.Fatalf("extractExtended: %v", err)
	}
	if len(extended) != 3 {
		t.Fatalf("got %d extended, want 3", len(extended))
	}
	for _, f := range extended {
		if f.PrimaryText == "borderline" {
			t.Fatal("borderline edge entry was not trimmed from the run")
		}
	}
	if len(remaining) != 3 {
		t.Fatalf("got %d remaining, want 3", len(remaining))
	}
}

func TestExtractExtendedNoSurvivingRun(t *testing.T) {
	vocab := map[string][]float64{
		"line a": {1, 0, 0}, "ligne a": {1, 0, 0},
		"line b": {0, 1, 0}, "ligne b": {0, 1, 0},
		"line c": {0, 0, 1}, "ligne c": {0, 0, 1},
	}
	sc := newScorer(testEmbedder(vocab), DefaultBatchSize, nil)
	fields := []subtitle.MergedField{
		{PrimaryText: "line a", SecondaryText: "ligne a"},
		{PrimaryText: "line b", SecondaryText: "ligne b", Seq: 1},
		{PrimaryText: "line c", SecondaryText: "ligne c", Seq: 2},
	}
	remaining, extended, err := extractExtended(context.Background(), sc, StageExtended, fields, defaultExtendedOptions())
	if err != nil {
		t.Fatalf("extractExtended: %v", err)
	}
	if extended != nil {
		t.Fatalf("expected no extensions, got %v", extended)
	}
	if len(remaining) != len(fields) {
		t.Fatalf("remaining = %d fields, want %d", len(remaining), len(fields))
	}
}
