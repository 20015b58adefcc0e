package align

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"subweave/internal/services"
	"subweave/internal/subtitle"
	"subweave/internal/tokenize"
)

// Above this many cells the accumulation surface is evaluated inside a
// diagonal band instead of in full.
const maxFullCells = 4 << 20

// arena is a grow-only buffer reused across stages of one run, so long
// tracks do not pay a fresh large allocation per stage.
type arena struct {
	buf []float64
}

func (a *arena) dense(rows, cols int) *mat.Dense {
	n := rows * cols
	if cap(a.buf) < n {
		a.buf = make([]float64, n)
	}
	data := a.buf[:n]
	for i := range data {
		data[i] = math.Inf(1)
	}
	return mat.NewDense(rows, cols, data)
}

type pathStep struct {
	i int // primary token index
	j int // secondary token index
}

// dtwPath computes the minimum-cost monotonic pairing between the two
// embedded token sequences. Only the three canonical moves are allowed
// (advance both, advance primary, advance secondary); ties prefer the
// diagonal. Cost per cell is 1 - cosine similarity.
//
// Either side empty yields a nil path.
func dtwPath(pVecs, sVecs [][]float64, buf *arena, cancel *CancelFlag) ([]pathStep, error) {
	n, m := len(pVecs), len(sVecs)
	if n == 0 || m == 0 {
		return nil, nil
	}

	radius := bandRadius(n, m)
	banded := n*m > maxFullCells

	// acc is padded by one row and column; acc(0,0) anchors the path.
	acc := buf.dense(n+1, m+1)
	acc.Set(0, 0, 0)

	inBand := func(i, j int) bool {
		if !banded {
			return true
		}
		center := (i - 1) * m / n
		d := j - 1 - center
		if d < 0 {
			d = -d
		}
		return d <= radius
	}

	for i := 1; i <= n; i++ {
		if i%64 == 0 && cancel.Cancelled() {
			return nil, services.Wrap(services.ErrCancelled, "dtw", "accumulate", "stopped", nil)
		}
		for j := 1; j <= m; j++ {
			if !inBand(i, j) {
				continue
			}
			best := acc.At(i-1, j-1)
			if up := acc.At(i-1, j); up < best {
				best = up
			}
			if left := acc.At(i, j-1); left < best {
				best = left
			}
			if math.IsInf(best, 1) {
				continue
			}
			acc.Set(i, j, best+1-Cosine(pVecs[i-1], sVecs[j-1]))
		}
	}

	if math.IsInf(acc.At(n, m), 1) {
		// The band was too narrow for a complete path; should not happen
		// with the radius floor, but fail loudly rather than emit garbage.
		return nil, services.Wrap(services.ErrProvider, "dtw", "accumulate", "no complete warping path", nil)
	}

	// Backtrack, preferring the diagonal on ties.
	path := make([]pathStep, 0, n+m)
	i, j := n, m
	for i > 0 && j > 0 {
		path = append(path, pathStep{i: i - 1, j: j - 1})
		diag := acc.At(i-1, j-1)
		up := acc.At(i-1, j)
		left := acc.At(i, j-1)
		switch {
		case diag <= up && diag <= left:
			i, j = i-1, j-1
		case up <= left:
			i--
		default:
			j--
		}
	}
	reverse(path)
	return path, nil
}

func bandRadius(n, m int) int {
	radius := n - m
	if radius < 0 {
		radius = -radius
	}
	if floor := m / 20; floor > radius {
		radius = floor
	}
	if radius < 64 {
		radius = 64
	}
	return radius
}

func reverse(path []pathStep) {
	for a, b := 0, len(path)-1; a < b; a, b = a+1, b-1 {
		path[a], path[b] = path[b], path[a]
	}
}

// groupPath folds the token-level warping path back to entry granularity:
// each primary entry inherits the secondary token indices aligned to any
// token inside its span, compressed to contiguous runs. sim scores a
// (primary token, secondary token) pair and feeds the per-entry mean
// similarity used later by extended-cut detection.
func groupPath(path []pathStep, entries []subtitle.Entry, secTokens, secStyles []string, spaceSeparated bool, sim func(i, j int) float64) []subtitle.MergedField {
	fields := make([]subtitle.MergedField, len(entries))
	step := 0
	for idx, e := range entries {
		f := subtitle.MergedField{
			Start:        e.Start,
			End:          e.End,
			PrimaryText:  e.Text,
			PrimaryStyle: e.Style,
			Seq:          idx,
		}
		var (
			runStart = -1
			runEnd   = -1
			total    float64
			count    int
		)
		for step < len(path) && path[step].i < e.Span.End {
			if path[step].i < e.Span.Start {
				step++
				continue
			}
			j := path[step].j
			if runStart < 0 {
				runStart, runEnd = j, j+1
			} else if j < runEnd {
				// Same secondary token again (vertical move); nothing new.
			} else if j == runEnd {
				runEnd++
			} else {
				f.SecondarySpans = append(f.SecondarySpans, subtitle.TokenSpan{Start: runStart, End: runEnd})
				runStart, runEnd = j, j+1
			}
			total += sim(path[step].i, j)
			count++
			step++
		}
		if runStart >= 0 {
			f.SecondarySpans = append(f.SecondarySpans, subtitle.TokenSpan{Start: runStart, End: runEnd})
		}
		if count > 0 {
			f.Score = total / float64(count)
		}
		renderSecondary(&f, secTokens, secStyles, spaceSeparated)
		fields[idx] = f
	}
	return fields
}

// renderSecondary recomputes a field's secondary text and style from its
// current token spans.
func renderSecondary(f *subtitle.MergedField, secTokens, secStyles []string, spaceSeparated bool) {
	if len(f.SecondarySpans) == 0 {
		f.SecondaryText = ""
		f.SecondaryStyle = ""
		return
	}
	var parts []string
	for _, span := range f.SecondarySpans {
		for k := span.Start; k < span.End && k < len(secTokens); k++ {
			parts = append(parts, secTokens[k])
		}
	}
	f.SecondaryText = tokenize.JoinTokens(parts, spaceSeparated)
	first := f.SecondarySpans[0].Start
	if first >= 0 && first < len(secStyles) {
		f.SecondaryStyle = secStyles[first]
	}
}
