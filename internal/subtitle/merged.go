package subtitle

import "sort"

// MergedField is one unit of merged output: primary timing plus the text
// and style of both sides. Seq preserves the original sequence position so
// sorting stays stable across fields with identical timing.
//
// SecondarySpans and Score are working state used while an alignment run is
// still refining assignments; they are not part of the written output.
type MergedField struct {
	Start          int64
	End            int64
	PrimaryText    string
	SecondaryText  string
	PrimaryStyle   string
	SecondaryStyle string
	Seq            int
	SecondarySpans []TokenSpan
	Score          float64
}

// HasSecondary reports whether the field carries secondary text.
func (f MergedField) HasSecondary() bool { return f.SecondaryText != "" }

// SortFields orders fields by (start, end) with ties broken by the original
// sequence index, reconstructing a monotonically non-decreasing timeline.
func SortFields(fields []MergedField) {
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Start != fields[j].Start {
			return fields[i].Start < fields[j].Start
		}
		if fields[i].End != fields[j].End {
			return fields[i].End < fields[j].End
		}
		return fields[i].Seq < fields[j].Seq
	})
}
