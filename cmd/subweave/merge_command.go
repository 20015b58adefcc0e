package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"subweave/internal/align"
	"subweave/internal/config"
	"subweave/internal/embedcache"
	"subweave/internal/logging"
	"subweave/internal/services"
	"subweave/internal/services/embedding"
	"subweave/internal/subio"
	"subweave/internal/tokenize"
)

type mergeFlags struct {
	output         string
	primaryOut     string
	secondaryOut   string
	mode           string
	ignoreFilter   bool
	retainBreaks   bool
	secondaryAbove bool
	batchSize      int
	primaryLang    string
	secondaryLang  string
	noCache        bool
	noProgress     bool
	quiet          bool
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var flags mergeFlags

	cmd := &cobra.Command{
		Use:   "merge <primary> <secondary>",
		Short: "Align two subtitle files and write a merged track",
		Long: "Merge aligns the secondary subtitle file onto the primary one by\n" +
			"embedding similarity and writes a combined track on the primary\n" +
			"timeline. Use --mode cuts when the primary is a longer cut of the\n" +
			"same material.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runMerge(cmd, cfg, args[0], args[1], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Merged output path (default <primary>.merged.<ext>)")
	cmd.Flags().StringVar(&flags.primaryOut, "primary-output", "", "Also write a primary-only track to this path")
	cmd.Flags().StringVar(&flags.secondaryOut, "secondary-output", "", "Also write the retimed secondary track to this path")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "Alignment mode: standard or cuts (default from config)")
	cmd.Flags().BoolVar(&flags.ignoreFilter, "ignore-non-overlap", false, "Skip the time-overlap prefilter and align everything")
	cmd.Flags().BoolVar(&flags.retainBreaks, "retain-breaks", false, "Keep original line breaks instead of tidying them")
	cmd.Flags().BoolVar(&flags.secondaryAbove, "secondary-above", false, "Stack secondary text above primary in merged cues")
	cmd.Flags().IntVar(&flags.batchSize, "batch-size", 0, "Embedding batch size (default from config)")
	cmd.Flags().StringVar(&flags.primaryLang, "primary-lang", "", "Primary track language override")
	cmd.Flags().StringVar(&flags.secondaryLang, "secondary-lang", "", "Secondary track language override")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Bypass the embedding cache")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Disable the progress bar")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Suppress the summary table and progress bar")

	return cmd
}

func runMerge(cmd *cobra.Command, cfg *config.Config, primaryPath, secondaryPath string, flags mergeFlags) error {
	logger, err := newMergeLogger(cfg)
	if err != nil {
		return err
	}
	log := logging.NewComponentLogger(logger, "merge")

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = services.WithRunID(runCtx, uuid.NewString())

	priEntries, err := subio.ReadFile(primaryPath)
	if err != nil {
		return err
	}
	secEntries, err := subio.ReadFile(secondaryPath)
	if err != nil {
		return err
	}

	primary := tokenize.BuildTrack(priEntries, firstNonEmpty(flags.primaryLang, cfg.Tracks.PrimaryLanguage))
	secondary := tokenize.BuildTrack(secEntries, firstNonEmpty(flags.secondaryLang, cfg.Tracks.SecondaryLanguage))
	logging.WithContext(runCtx, log).Info("tracks loaded",
		logging.Args(
			logging.Int("primary_entries", len(primary.Entries)),
			logging.Int("secondary_entries", len(secondary.Entries)),
			logging.String("primary_language", primary.Language),
			logging.String("secondary_language", secondary.Language),
		)...)

	client := embedding.NewClient(embedding.Config{
		APIKey:         cfg.Embedding.APIKey,
		BaseURL:        cfg.Embedding.BaseURL,
		Model:          cfg.Embedding.Model,
		TimeoutSeconds: cfg.Embedding.TimeoutSeconds,
	})
	var embedder align.Embedder = client
	if cfg.Embedding.CacheEnabled && !flags.noCache {
		cache, cacheErr := embedcache.Open(cfg.Paths.CacheDir)
		if cacheErr != nil {
			log.Warn("embedding cache unavailable, continuing without it", logging.Args(logging.Error(cacheErr))...)
		} else {
			defer cache.Close()
			if cfg.Embedding.CacheRetention > 0 {
				retention := time.Duration(cfg.Embedding.CacheRetention) * 24 * time.Hour
				if removed, pruneErr := cache.Prune(runCtx, retention); pruneErr == nil && removed > 0 {
					log.Debug("pruned stale cached embeddings", logging.Args(logging.Int64("removed", removed))...)
				}
			}
			embedder = cache.Wrap(cfg.Embedding.Model, client)
		}
	}

	mode := align.Mode(firstNonEmpty(flags.mode, cfg.Align.Mode))
	bar := newProgressBar(flags)
	sampler := logging.NewProgressSampler(10)
	progress := func(percent float64) {
		if bar != nil {
			_ = bar.Set(int(percent))
		}
		if sampler.ShouldLog(percent, "") {
			log.Debug("alignment progress", logging.Args(logging.Float64("percent", percent))...)
		}
	}

	merger, err := align.New(primary, secondary, embedder, align.Options{
		Mode:                   mode,
		BatchSize:              pickInt(flags.batchSize, cfg.Embedding.BatchSize),
		IgnoreNonOverlapFilter: flags.ignoreFilter || cfg.Align.IgnoreNonOverlapFilter,
		RetainBreaks:           flags.retainBreaks || cfg.Align.RetainBreaks,
		AlignThreshold:         cfg.Align.AlignThreshold,
		TrimThreshold:          cfg.Align.TrimThreshold,
		HMMStayProb:            cfg.Align.HMMStayProb,
		HMMEmitProb:            cfg.Align.HMMEmitProb,
		StageWeights:           cfg.Align.StageWeights,
		Progress:               progress,
		Logger:                 logger,
	})
	if err != nil {
		return err
	}
	go func() {
		<-runCtx.Done()
		merger.Cancel()
	}()

	started := time.Now()
	result, err := merger.Run(runCtx)
	if bar != nil {
		_ = bar.Clear()
	}
	if err != nil {
		if services.IsCancelled(err) {
			return fmt.Errorf("merge cancelled")
		}
		return err
	}

	outputPath := flags.output
	if outputPath == "" {
		outputPath = derivedOutputPath(primaryPath)
	}
	if err := subio.WriteFile(outputPath, subio.MergedEntries(result.Fields, flags.secondaryAbove)); err != nil {
		return err
	}
	if flags.primaryOut != "" {
		if err := subio.WriteFile(flags.primaryOut, subio.PrimaryEntries(result.Fields)); err != nil {
			return err
		}
	}
	if flags.secondaryOut != "" {
		if err := subio.WriteFile(flags.secondaryOut, subio.SecondaryEntries(result.Fields)); err != nil {
			return err
		}
	}

	logging.WithContext(runCtx, log).Info("merge complete",
		logging.Args(
			logging.String("output", outputPath),
			logging.Int("fields", len(result.Fields)),
			logging.Int("aligned", result.Aligned),
			logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
		)...)

	if !flags.quiet {
		fmt.Fprintln(cmd.OutOrStdout(), renderMergeSummary(result, mode, outputPath))
	}
	return nil
}

func newMergeLogger(cfg *config.Config) (*slog.Logger, error) {
	outputs := []string{"stderr"}
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		outputs = append(outputs, filepath.Join(cfg.Paths.LogDir, "subweave.log"))
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
}

func newProgressBar(flags mergeFlags) *progressbar.ProgressBar {
	if flags.noProgress || flags.quiet || !stderrIsTerminal() {
		return nil
	}
	return progressbar.NewOptions(100,
		progressbar.OptionSetDescription("aligning"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func pickInt(flag, fallback int) int {
	if flag > 0 {
		return flag
	}
	return fallback
}

// derivedOutputPath inserts ".merged" before the primary file's
// extension.
func derivedOutputPath(primaryPath string) string {
	ext := filepath.Ext(primaryPath)
	return strings.TrimSuffix(primaryPath, ext) + ".merged" + ext
}
