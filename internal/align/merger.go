package align

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"subweave/internal/logging"
	"subweave/internal/services"
	"subweave/internal/subtitle"
)

// Mode selects the stage sequence.
type Mode string

const (
	// ModeStandard expects the tracks to cover the same material, possibly
	// with time-disjoint stretches that are carried over unaligned.
	ModeStandard Mode = "standard"
	// ModeCuts expects the primary track to be a longer cut of the
	// secondary; primary-only spans are detected and kept unpaired.
	ModeCuts Mode = "cuts"
)

// Stage identifiers, also used as log fields and progress-weight keys.
const (
	StageNonOverlap = "nonoverlap"
	StageDTW        = "dtw"
	StageRefine     = "refine"
	StageExtended   = "extended"
	StageRefine2    = "refine2"
	StageCombine    = "combine"
	StageCleanup    = "cleanup"
)

// Default tuned constants for extended-cut detection.
const (
	DefaultAlignThreshold = 0.55
	DefaultTrimThreshold  = 0.40
	DefaultHMMStayProb    = 0.90
	DefaultHMMEmitProb    = 0.85
)

func defaultWeights(mode Mode) map[string]float64 {
	if mode == ModeCuts {
		return map[string]float64{
			StageDTW:      0.35,
			StageRefine:   0.30,
			StageExtended: 0.10,
			StageRefine2:  0.20,
			StageCombine:  0.03,
			StageCleanup:  0.02,
		}
	}
	return map[string]float64{
		StageNonOverlap: 0.05,
		StageDTW:        0.45,
		StageRefine:     0.40,
		StageCombine:    0.05,
		StageCleanup:    0.05,
	}
}

// Options configure one Merger. Zero values select the documented
// defaults; StageWeights, when set, fully replaces the mode's default
// weight table and must sum to 1.
type Options struct {
	Mode                   Mode
	BatchSize              int
	IgnoreNonOverlapFilter bool
	RetainBreaks           bool

	AlignThreshold float64
	TrimThreshold  float64
	HMMStayProb    float64
	HMMEmitProb    float64

	StageWeights map[string]float64

	Progress func(percent float64)
	Cancel   *CancelFlag
	Logger   *slog.Logger
}

// Result is the outcome of one successful run.
type Result struct {
	Fields          []subtitle.MergedField
	PrimaryStyles   []string
	SecondaryStyles []string

	Aligned       int
	PrimaryOnly   int
	SecondaryOnly int
	Extended      int
}

// Merger sequences the alignment stages for one pair of tracks. A Merger
// is single-use and not safe for concurrent Runs; build one per job.
type Merger struct {
	primary   subtitle.Track
	secondary subtitle.Track
	scorer    *scorer
	opts      Options
	weights   map[string]float64
	cancel    *CancelFlag
	log       *slog.Logger
	arena     arena
}

// New validates the inputs and builds a Merger. Tracks must be tokenized
// (see tokenize.BuildTrack) and non-empty.
func New(primary, secondary subtitle.Track, embedder Embedder, opts Options) (*Merger, error) {
	if len(primary.Entries) == 0 || len(secondary.Entries) == 0 {
		return nil, services.Wrap(services.ErrInput, "init", "validate", "both tracks need at least one entry", nil)
	}
	if embedder == nil {
		return nil, services.Wrap(services.ErrConfiguration, "init", "validate", "embedder is required", nil)
	}
	if opts.Mode == "" {
		opts.Mode = ModeStandard
	}
	if opts.Mode != ModeStandard && opts.Mode != ModeCuts {
		return nil, services.Wrap(services.ErrConfiguration, "init", "validate", fmt.Sprintf("unknown mode %q", opts.Mode), nil)
	}
	if opts.AlignThreshold == 0 {
		opts.AlignThreshold = DefaultAlignThreshold
	}
	if opts.TrimThreshold == 0 {
		opts.TrimThreshold = DefaultTrimThreshold
	}
	if opts.HMMStayProb == 0 {
		opts.HMMStayProb = DefaultHMMStayProb
	}
	if opts.HMMEmitProb == 0 {
		opts.HMMEmitProb = DefaultHMMEmitProb
	}
	stages := defaultWeights(opts.Mode)
	weights := opts.StageWeights
	if weights == nil {
		weights = stages
	} else {
		for stage := range weights {
			if _, ok := stages[stage]; !ok {
				return nil, services.Wrap(services.ErrConfiguration, "init", "validate", fmt.Sprintf("stage %s is not part of mode %s", stage, opts.Mode), nil)
			}
		}
	}
	var sum float64
	for stage, w := range weights {
		if w < 0 {
			return nil, services.Wrap(services.ErrConfiguration, "init", "validate", fmt.Sprintf("stage weight %s is negative", stage), nil)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		return nil, services.Wrap(services.ErrConfiguration, "init", "validate", fmt.Sprintf("stage weights sum to %.4f, want 1", sum), nil)
	}
	cancel := opts.Cancel
	if cancel == nil {
		cancel = NewCancelFlag()
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}
	return &Merger{
		primary:   primary,
		secondary: secondary,
		scorer:    newScorer(embedder, opts.BatchSize, cancel),
		opts:      opts,
		weights:   weights,
		cancel:    cancel,
		log:       log,
	}, nil
}

// Cancel requests that the current Run stop at its next poll point.
func (m *Merger) Cancel() { m.cancel.Cancel() }

type progressTracker struct {
	notify func(float64)
	base   float64
	last   float64
}

func (p *progressTracker) report(v float64) {
	if v < p.last {
		return
	}
	p.last = v
	if p.notify != nil {
		p.notify(v)
	}
}

// stageFn returns a stage-local progress callback scaled by the stage's
// weight.
func (p *progressTracker) stageFn(weight float64) func(done, total int) {
	return func(done, total int) {
		if total <= 0 {
			return
		}
		frac := float64(done) / float64(total)
		if frac > 1 {
			frac = 1
		}
		p.report(p.base + weight*frac*100)
	}
}

func (p *progressTracker) finishStage(weight float64) {
	p.base += weight * 100
	p.report(p.base)
}

// Run executes the mode's stage sequence and returns the merged track.
// Cancellation surfaces as an ErrCancelled-wrapped error with no partial
// output.
func (m *Merger) Run(ctx context.Context) (Result, error) {
	prog := &progressTracker{notify: m.opts.Progress}

	pri := m.primary
	sec := m.secondary

	var priOnly, secOnly []subtitle.MergedField
	priEntries := pri.Entries
	secEntries := sec.Entries
	priTokens := pri.Tokens
	secTokens, secStyles := sec.Tokens, sec.TokenStyles

	// The stage sequence is fixed by the mode; weights only scale progress.
	if m.opts.Mode == ModeStandard {
		if !m.opts.IgnoreNonOverlapFilter {
			stageCtx := services.WithStage(ctx, StageNonOverlap)
			logging.WithContext(stageCtx, m.log).Info("extracting time-disjoint entries")

			priOut, priRes := extractNonOverlap(pri.Entries, sec.Entries)
			secOut, secRes := extractNonOverlap(sec.Entries, pri.Entries)
			priTokens, _, priEntries = compactTrack(pri, priOut, priRes)
			secTokens, secStyles, secEntries = compactTrack(sec, secOut, secRes)
			priOnly = placeholderFields(priOut, true)
			secOnly = placeholderFields(secOut, false)
		}
		prog.finishStage(m.weights[StageNonOverlap])
	}
	if err := m.checkCancelled(ctx, StageNonOverlap); err != nil {
		return Result{}, err
	}

	var aligned, extended []subtitle.MergedField
	if len(priTokens) == 0 || len(secTokens) == 0 {
		// Degenerate alignment is a valid outcome: the residual entries
		// carry over as one-sided fields, not as aligned pairs.
		priOnly = append(priOnly, placeholderFields(priEntries, true)...)
		secOnly = append(secOnly, placeholderFields(secEntries, false)...)
		for _, stage := range []string{StageDTW, StageRefine, StageExtended, StageRefine2} {
			prog.finishStage(m.weights[stage])
		}
	} else {
		var err error
		aligned, extended, err = m.alignResidual(ctx, prog, priEntries, priTokens, secTokens, secStyles)
		if err != nil {
			return Result{}, err
		}
	}

	stageCtx := services.WithStage(ctx, StageCombine)
	logging.WithContext(stageCtx, m.log).Info("combining pools",
		logging.Args(
			logging.Int("aligned", len(aligned)),
			logging.Int("primary_only", len(priOnly)),
			logging.Int("secondary_only", len(secOnly)),
			logging.Int("extended", len(extended)))...)

	fields := make([]subtitle.MergedField, 0, len(aligned)+len(priOnly)+len(secOnly)+len(extended))
	fields = append(fields, aligned...)
	fields = append(fields, extended...)
	fields = append(fields, priOnly...)
	fields = append(fields, secOnly...)
	for i := range fields {
		fields[i].Seq = i
	}
	subtitle.SortFields(fields)
	prog.finishStage(m.weights[StageCombine])

	cleanFields(fields, m.opts.RetainBreaks)
	prog.finishStage(m.weights[StageCleanup])
	prog.report(100)

	return Result{
		Fields:          fields,
		PrimaryStyles:   m.primary.StyleNames,
		SecondaryStyles: m.secondary.StyleNames,
		Aligned:         len(aligned),
		PrimaryOnly:     len(priOnly),
		SecondaryOnly:   len(secOnly),
		Extended:        len(extended),
	}, nil
}

// alignResidual runs DTW and the refinement passes over the
// alignment-eligible entries. The caller guarantees both token lists are
// non-empty; the degenerate case never reaches the embedding provider.
func (m *Merger) alignResidual(ctx context.Context, prog *progressTracker, priEntries []subtitle.Entry, priTokens, secTokens, secStyles []string) (aligned, extended []subtitle.MergedField, err error) {
	stageCtx := services.WithStage(ctx, StageDTW)
	logging.WithContext(stageCtx, m.log).Info("aligning token sequences",
		logging.Args(
			logging.Int("primary_tokens", len(priTokens)),
			logging.Int("secondary_tokens", len(secTokens)))...)

	all := make([]string, 0, len(priTokens)+len(secTokens))
	all = append(all, priTokens...)
	all = append(all, secTokens...)
	vecs, err := m.scorer.vectors(stageCtx, StageDTW, all, prog.stageFn(m.weights[StageDTW]))
	if err != nil {
		return nil, nil, err
	}
	pVecs, sVecs := vecs[:len(priTokens)], vecs[len(priTokens):]

	path, err := dtwPath(pVecs, sVecs, &m.arena, m.cancel)
	if err != nil {
		return nil, nil, err
	}
	sim := func(i, j int) float64 { return Cosine(pVecs[i], sVecs[j]) }
	aligned = groupPath(path, priEntries, secTokens, secStyles, m.secondary.SpaceSeparated, sim)
	prog.finishStage(m.weights[StageDTW])

	ref := &refiner{
		scorer:         m.scorer,
		secTokens:      secTokens,
		secStyles:      secStyles,
		spaceSeparated: m.secondary.SpaceSeparated,
		window:         3,
	}
	stageCtx = services.WithStage(ctx, StageRefine)
	logging.WithContext(stageCtx, m.log).Info("refining assignment", logging.Args(logging.Int("window", ref.window))...)
	aligned, err = ref.refine(stageCtx, StageRefine, aligned, prog.stageFn(m.weights[StageRefine]))
	if err != nil {
		return nil, nil, err
	}
	prog.finishStage(m.weights[StageRefine])

	if m.opts.Mode == ModeCuts {
		stageCtx = services.WithStage(ctx, StageExtended)
		logging.WithContext(stageCtx, m.log).Info("detecting extended-cut spans")
		aligned, extended, err = extractExtended(stageCtx, m.scorer, StageExtended, aligned, extendedOptions{
			alignThreshold: m.opts.AlignThreshold,
			trimThreshold:  m.opts.TrimThreshold,
			stayProb:       m.opts.HMMStayProb,
			emitProb:       m.opts.HMMEmitProb,
		})
		if err != nil {
			return nil, nil, err
		}
		prog.finishStage(m.weights[StageExtended])

		ref.window = 2
		stageCtx = services.WithStage(ctx, StageRefine2)
		logging.WithContext(stageCtx, m.log).Info("refining assignment", logging.Args(logging.Int("window", ref.window))...)
		aligned, err = ref.refine(stageCtx, StageRefine2, aligned, prog.stageFn(m.weights[StageRefine2]))
		if err != nil {
			return nil, nil, err
		}
		prog.finishStage(m.weights[StageRefine2])
	}
	return aligned, extended, nil
}

func (m *Merger) checkCancelled(ctx context.Context, stage string) error {
	if m.cancel.Cancelled() {
		return services.Wrap(services.ErrCancelled, stage, "poll", "stopped", nil)
	}
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrCancelled, stage, "poll", "context done", err)
	}
	return nil
}
