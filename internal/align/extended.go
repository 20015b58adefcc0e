package align

import (
	"context"
	"math"

	"subweave/internal/subtitle"
)

// extendedOptions are the tuned constants of extended-cut detection. All
// four are surfaced through config; the defaults were calibrated on
// theatrical-vs-extended movie pairs.
type extendedOptions struct {
	alignThreshold float64 // entry counts as matched at or above this
	trimThreshold  float64 // run edges above this are borderline matches
	stayProb       float64 // HMM probability of staying in a state
	emitProb       float64 // HMM probability the mask agrees with the state
}

// extractExtended peels primary entries that have no credible secondary
// counterpart. The per-entry similarity of each field's primary text to
// its currently assigned secondary text is thresholded into a binary
// mask, the mask is denoised with a two-state Viterbi pass so isolated
// flips do not spawn spurious extensions, and each surviving unmatched
// run is trimmed at the edges where the entry still resembles its nearest
// matched neighbor's secondary text.
//
// Returns the fields still in the alignment pool and the extracted
// primary-only fields. When nothing survives the filters the input is
// returned unchanged with a nil extension list.
func extractExtended(ctx context.Context, sc *scorer, stage string, fields []subtitle.MergedField, opts extendedOptions) (remaining, extended []subtitle.MergedField, err error) {
	if len(fields) == 0 {
		return fields, nil, nil
	}

	sims := make([]float64, len(fields))
	texts := make([]string, 0, 2*len(fields))
	for _, f := range fields {
		texts = append(texts, f.PrimaryText, f.SecondaryText)
	}
	vecs, err := sc.vectors(ctx, stage, texts, nil)
	if err != nil {
		return nil, nil, err
	}
	mask := make([]bool, len(fields))
	for i := range fields {
		if fields[i].SecondaryText == "" {
			continue
		}
		sims[i] = Cosine(vecs[2*i], vecs[2*i+1])
		mask[i] = sims[i] >= opts.alignThreshold
	}

	smoothed := smoothMask(mask, opts.stayProb, opts.emitProb)

	isExtended := make([]bool, len(fields))
	for start := 0; start < len(smoothed); {
		if smoothed[start] {
			start++
			continue
		}
		end := start
		for end < len(smoothed) && !smoothed[end] {
			end++
		}
		a, b := trimRun(ctx, sc, stage, fields, start, end, opts.trimThreshold)
		for i := a; i < b; i++ {
			isExtended[i] = true
		}
		start = end
	}

	for i, f := range fields {
		if !isExtended[i] {
			remaining = append(remaining, f)
			continue
		}
		extended = append(extended, subtitle.MergedField{
			Start:        f.Start,
			End:          f.End,
			PrimaryText:  f.PrimaryText,
			PrimaryStyle: f.PrimaryStyle,
			Seq:          f.Seq,
		})
	}
	if len(extended) == 0 {
		return fields, nil, nil
	}
	return remaining, extended, nil
}

// trimRun shrinks the candidate run [start, end) from both edges. An edge
// entry whose primary text is still similar to the nearest matched
// neighbor's secondary text is a borderline match rather than a true
// extension, so it is pushed back into the alignment pool.
func trimRun(ctx context.Context, sc *scorer, stage string, fields []subtitle.MergedField, start, end int, trimThreshold float64) (int, int) {
	borderline := func(idx, neighbor int) bool {
		if neighbor < 0 || neighbor >= len(fields) {
			return false
		}
		ref := fields[neighbor].SecondaryText
		if ref == "" {
			return false
		}
		sim, err := sc.similarity(ctx, stage, fields[idx].PrimaryText, ref)
		if err != nil {
			// Embeddings for these texts are already cached from the mask
			// pass, so this cannot issue a provider call; treat any error
			// as not borderline and keep the entry in the run.
			return false
		}
		return sim > trimThreshold
	}
	for start < end && borderline(start, start-1) {
		start++
	}
	for end > start && borderline(end-1, end) {
		end--
	}
	return start, end
}

// smoothMask runs Viterbi decoding over the binary match mask with a
// two-state chain (matched/unmatched). stayProb biases toward runs,
// emitProb is the chance the observed mask bit agrees with the hidden
// state. Worked in log space; uniform initial distribution.
func smoothMask(mask []bool, stayProb, emitProb float64) []bool {
	n := len(mask)
	if n == 0 {
		return nil
	}
	logStay := math.Log(stayProb)
	logSwitch := math.Log(1 - stayProb)
	logAgree := math.Log(emitProb)
	logDisagree := math.Log(1 - emitProb)

	emit := func(state int, obs bool) float64 {
		if (state == 1) == obs {
			return logAgree
		}
		return logDisagree
	}

	var prev [2]float64
	prev[0] = emit(0, mask[0])
	prev[1] = emit(1, mask[0])
	back := make([][2]int, n)
	for t := 1; t < n; t++ {
		var cur [2]float64
		for s := 0; s < 2; s++ {
			fromStay := prev[s] + logStay
			fromSwitch := prev[1-s] + logSwitch
			if fromStay >= fromSwitch {
				cur[s] = fromStay + emit(s, mask[t])
				back[t][s] = s
			} else {
				cur[s] = fromSwitch + emit(s, mask[t])
				back[t][s] = 1 - s
			}
		}
		prev = cur
	}

	state := 0
	if prev[1] >= prev[0] {
		state = 1
	}
	out := make([]bool, n)
	for t := n - 1; t >= 0; t-- {
		out[t] = state == 1
		state = back[t][state]
	}
	return out
}
