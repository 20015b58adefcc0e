package config

import (
	"errors"
	"fmt"
	"math"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEmbedding(); err != nil {
		return err
	}
	if err := c.validateAlign(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	if c.Embedding.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/subweave/config.toml"
		}
		return fmt.Errorf("embedding.base_url is required. Set SUBWEAVE_EMBEDDING_BASE_URL env var or edit %s (create with 'subweave config init')", defaultPath)
	}
	if c.Embedding.BatchSize <= 0 {
		return errors.New("embedding.batch_size must be positive")
	}
	if c.Embedding.TimeoutSeconds <= 0 {
		return errors.New("embedding.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateAlign() error {
	switch c.Align.Mode {
	case "standard", "cuts":
	default:
		return fmt.Errorf("align.mode must be \"standard\" or \"cuts\", got %q", c.Align.Mode)
	}
	for name, value := range map[string]float64{
		"align.align_threshold": c.Align.AlignThreshold,
		"align.trim_threshold":  c.Align.TrimThreshold,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	for name, value := range map[string]float64{
		"align.hmm_stay_prob": c.Align.HMMStayProb,
		"align.hmm_emit_prob": c.Align.HMMEmitProb,
	} {
		if value < 0 || value >= 1 {
			return fmt.Errorf("%s must be in [0, 1)", name)
		}
	}
	if len(c.Align.StageWeights) > 0 {
		allowed := stagesForMode(c.Align.Mode)
		var sum float64
		for stage, weight := range c.Align.StageWeights {
			if _, ok := allowed[stage]; !ok {
				return fmt.Errorf("align.stage_weights.%s is not a stage of mode %q", stage, c.Align.Mode)
			}
			if weight < 0 {
				return fmt.Errorf("align.stage_weights.%s must not be negative", stage)
			}
			sum += weight
		}
		if math.Abs(sum-1) > 1e-6 {
			return fmt.Errorf("align.stage_weights must sum to 1, got %.4f", sum)
		}
	}
	return nil
}

// stagesForMode mirrors the engine's mode-fixed stage sequences. Weights
// never change which stages run, so a key outside the sequence is a
// configuration mistake.
func stagesForMode(mode string) map[string]struct{} {
	var names []string
	if mode == "cuts" {
		names = []string{"dtw", "refine", "extended", "refine2", "combine", "cleanup"}
	} else {
		names = []string{"nonoverlap", "dtw", "refine", "combine", "cleanup"}
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
