package align

import (
	"context"
	"sort"

	"subweave/internal/subtitle"
	"subweave/internal/tokenize"
)

// refiner repairs the entry-level assignment produced by DTW. Token-level
// warping routinely hands the same secondary material to two neighboring
// primary entries, or cuts one secondary sentence across an entry
// boundary; the refiner re-scores those decisions with entry-level
// similarity, which is far less sensitive to tokenization noise.
type refiner struct {
	scorer         *scorer
	secTokens      []string
	secStyles      []string
	spaceSeparated bool
	window         int
}

// refine runs one full refinement pass: resolve duplicated claims, re-split
// runs straddling adjacent entries, then attach unclaimed tokens. onStep,
// if non-nil, receives stage-local progress after each unit of work.
func (r *refiner) refine(ctx context.Context, stage string, fields []subtitle.MergedField, onStep func(done, total int)) ([]subtitle.MergedField, error) {
	if len(fields) == 0 {
		return fields, nil
	}
	out := make([]subtitle.MergedField, len(fields))
	copy(out, fields)

	// Three sweeps; progress is reported per field per sweep.
	total := 3 * len(out)
	done := 0
	step := func() {
		done++
		if onStep != nil {
			onStep(done, total)
		}
	}

	if err := r.resolveDuplicates(ctx, stage, out, step); err != nil {
		return nil, err
	}
	if err := r.splitBoundaries(ctx, stage, out, step); err != nil {
		return nil, err
	}
	if err := r.attachLeftovers(ctx, stage, out, step); err != nil {
		return nil, err
	}

	for i := range out {
		out[i].SecondarySpans = normalizeSpans(out[i].SecondarySpans)
		renderSecondary(&out[i], r.secTokens, r.secStyles, r.spaceSeparated)
	}
	return out, nil
}

func (r *refiner) runText(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(r.secTokens) {
		end = len(r.secTokens)
	}
	if start >= end {
		return ""
	}
	return tokenize.JoinTokens(r.secTokens[start:end], r.spaceSeparated)
}

// resolveDuplicates finds secondary token ranges claimed by more than one
// entry within the refinement window and keeps only the claimant whose
// full primary text is most similar to the contested run. Ties go to the
// earlier entry.
func (r *refiner) resolveDuplicates(ctx context.Context, stage string, fields []subtitle.MergedField, step func()) error {
	for i := range fields {
		hi := min(i+r.window, len(fields))
		for k := i + 1; k < hi; k++ {
			for {
				s, e := spansIntersect(fields[i].SecondarySpans, fields[k].SecondarySpans)
				if s >= e {
					break
				}
				run := r.runText(s, e)
				simI, err := r.scorer.similarity(ctx, stage, fields[i].PrimaryText, run)
				if err != nil {
					return err
				}
				simK, err := r.scorer.similarity(ctx, stage, fields[k].PrimaryText, run)
				if err != nil {
					return err
				}
				if simI >= simK {
					fields[k].SecondarySpans = removeRange(fields[k].SecondarySpans, s, e)
				} else {
					fields[i].SecondarySpans = removeRange(fields[i].SecondarySpans, s, e)
				}
			}
		}
		step()
	}
	return nil
}

// splitBoundaries re-cuts the combined secondary run of each adjacent
// entry pair. When the trailing run of one entry and the leading run of
// the next form one contiguous token range, every interior cut point is a
// candidate; the pair keeps the cut maximizing the summed entry-to-run
// similarity. On ties the leftmost maximal cut wins, leaving the contested
// tokens with the later entry.
func (r *refiner) splitBoundaries(ctx context.Context, stage string, fields []subtitle.MergedField, step func()) error {
	for i := 0; i+1 < len(fields); i++ {
		a, b := &fields[i], &fields[i+1]
		step()
		if len(a.SecondarySpans) == 0 || len(b.SecondarySpans) == 0 {
			continue
		}
		last := a.SecondarySpans[len(a.SecondarySpans)-1]
		first := b.SecondarySpans[0]
		if last.End != first.Start {
			continue
		}
		s, e := last.Start, first.End
		if e-s < 2 {
			continue
		}

		// Embed both entry texts and every candidate segment in one shot
		// so the provider sees batches, not single strings.
		texts := []string{a.PrimaryText, b.PrimaryText}
		for cut := s; cut <= e; cut++ {
			texts = append(texts, r.runText(s, cut), r.runText(cut, e))
		}
		vecs, err := r.scorer.vectors(ctx, stage, texts, nil)
		if err != nil {
			return err
		}
		aVec, bVec := vecs[0], vecs[1]
		bestCut, bestScore := -1, 0.0
		for idx, cut := 2, s; cut <= e; idx, cut = idx+2, cut+1 {
			score := Cosine(aVec, vecs[idx]) + Cosine(bVec, vecs[idx+1])
			if bestCut < 0 || score > bestScore {
				bestCut, bestScore = cut, score
			}
		}

		a.SecondarySpans = a.SecondarySpans[:len(a.SecondarySpans)-1]
		if bestCut > s {
			a.SecondarySpans = append(a.SecondarySpans, subtitle.TokenSpan{Start: s, End: bestCut})
		}
		b.SecondarySpans = b.SecondarySpans[1:]
		if bestCut < e {
			b.SecondarySpans = append([]subtitle.TokenSpan{{Start: bestCut, End: e}}, b.SecondarySpans...)
		}
	}
	step() // final field has no right neighbor
	return nil
}

// attachLeftovers assigns secondary tokens claimed by no entry. A gap
// between two owned runs goes to whichever adjacent entry is more similar
// to the gap text, the earlier entry on ties; tokens before the first run
// or after the last go to the nearest entry outright.
func (r *refiner) attachLeftovers(ctx context.Context, stage string, fields []subtitle.MergedField, step func()) error {
	type owned struct {
		field int
		span  subtitle.TokenSpan
	}
	var runs []owned
	for i := range fields {
		for _, sp := range fields[i].SecondarySpans {
			runs = append(runs, owned{field: i, span: sp})
		}
		step()
	}
	if len(runs) == 0 {
		// Nothing owns anything; give the whole sequence to the first
		// entry rather than dropping text.
		if len(r.secTokens) > 0 {
			fields[0].SecondarySpans = []subtitle.TokenSpan{{Start: 0, End: len(r.secTokens)}}
		}
		return nil
	}
	sort.Slice(runs, func(a, b int) bool { return runs[a].span.Start < runs[b].span.Start })

	extend := func(field int, s, e int) {
		fields[field].SecondarySpans = append(fields[field].SecondarySpans, subtitle.TokenSpan{Start: s, End: e})
	}

	if first := runs[0]; first.span.Start > 0 {
		extend(first.field, 0, first.span.Start)
	}
	if last := runs[len(runs)-1]; last.span.End < len(r.secTokens) {
		extend(last.field, last.span.End, len(r.secTokens))
	}
	for i := 0; i+1 < len(runs); i++ {
		s, e := runs[i].span.End, runs[i+1].span.Start
		if s >= e {
			continue
		}
		left, right := runs[i].field, runs[i+1].field
		if left == right {
			extend(left, s, e)
			continue
		}
		gap := r.runText(s, e)
		simL, err := r.scorer.similarity(ctx, stage, fields[left].PrimaryText, gap)
		if err != nil {
			return err
		}
		simR, err := r.scorer.similarity(ctx, stage, fields[right].PrimaryText, gap)
		if err != nil {
			return err
		}
		if simL >= simR {
			extend(left, s, e)
		} else {
			extend(right, s, e)
		}
	}
	return nil
}

// spansIntersect returns the first token range present in both span lists,
// or an empty range when they are disjoint.
func spansIntersect(a, b []subtitle.TokenSpan) (int, int) {
	for _, sa := range a {
		for _, sb := range b {
			s := max(sa.Start, sb.Start)
			e := min(sa.End, sb.End)
			if s < e {
				return s, e
			}
		}
	}
	return 0, 0
}

// removeRange subtracts [s, e) from every span in the list, dropping spans
// that become empty and splitting spans the range punches through.
func removeRange(spans []subtitle.TokenSpan, s, e int) []subtitle.TokenSpan {
	// A punched-through span yields two, so never build in place.
	out := make([]subtitle.TokenSpan, 0, len(spans)+1)
	for _, sp := range spans {
		if sp.End <= s || sp.Start >= e {
			out = append(out, sp)
			continue
		}
		if sp.Start < s {
			out = append(out, subtitle.TokenSpan{Start: sp.Start, End: s})
		}
		if sp.End > e {
			out = append(out, subtitle.TokenSpan{Start: e, End: sp.End})
		}
	}
	return out
}

// normalizeSpans sorts spans and coalesces adjacent or overlapping ones.
func normalizeSpans(spans []subtitle.TokenSpan) []subtitle.TokenSpan {
	if len(spans) < 2 {
		return spans
	}
	sort.Slice(spans, func(a, b int) bool { return spans[a].Start < spans[b].Start })
	out := spans[:1]
	for _, sp := range spans[1:] {
		last := &out[len(out)-1]
		if sp.Start <= last.End {
			if sp.End > last.End {
				last.End = sp.End
			}
			continue
		}
		out = append(out, sp)
	}
	return out
}
