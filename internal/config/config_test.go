package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[embedding]
base_url = "http://localhost:8080/v1"
`)
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("config not resolved: %q %v", resolved, exists)
	}
	if cfg.Embedding.Model != defaultEmbeddingModel {
		t.Fatalf("model = %q, want default", cfg.Embedding.Model)
	}
	if cfg.Embedding.BatchSize != defaultEmbeddingBatchSize {
		t.Fatalf("batch size = %d, want default", cfg.Embedding.BatchSize)
	}
	if cfg.Align.Mode != "standard" {
		t.Fatalf("mode = %q, want standard", cfg.Align.Mode)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("log format = %q, want console", cfg.Logging.Format)
	}
	if !filepath.IsAbs(cfg.Paths.LogDir) {
		t.Fatalf("log dir not expanded: %q", cfg.Paths.LogDir)
	}
}

func TestLoadParsesSections(t *testing.T) {
	path := writeConfig(t, `
[embedding]
base_url = "http://embed.internal/v1"
api_key = "secret"
batch_size = 16

[align]
mode = "CUTS"
align_threshold = 0.6
trim_threshold = 0.3

[tracks]
primary_language = "EN"
secondary_language = "ja"

[logging]
format = "json"
level = "debug"
`)
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.BatchSize != 16 || cfg.Embedding.APIKey != "secret" {
		t.Fatalf("embedding section wrong: %+v", cfg.Embedding)
	}
	if cfg.Align.Mode != "cuts" {
		t.Fatalf("mode not lowercased: %q", cfg.Align.Mode)
	}
	if cfg.Align.AlignThreshold != 0.6 || cfg.Align.TrimThreshold != 0.3 {
		t.Fatalf("thresholds wrong: %+v", cfg.Align)
	}
	if cfg.Tracks.PrimaryLanguage != "en" || cfg.Tracks.SecondaryLanguage != "ja" {
		t.Fatalf("tracks wrong: %+v", cfg.Tracks)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging wrong: %+v", cfg.Logging)
	}
}

func TestLoadRejectsBadMode(t *testing.T) {
	path := writeConfig(t, `
[embedding]
base_url = "http://localhost/v1"

[align]
mode = "theatrical"
`)
	if _, _, _, err := Load(path); err == nil || !strings.Contains(err.Error(), "align.mode") {
		t.Fatalf("expected mode error, got %v", err)
	}
}

func TestLoadRejectsBadStageWeights(t *testing.T) {
	path := writeConfig(t, `
[embedding]
base_url = "http://localhost/v1"

[align.stage_weights]
dtw = 0.5
refine = 0.2
`)
	if _, _, _, err := Load(path); err == nil || !strings.Contains(err.Error(), "stage_weights") {
		t.Fatalf("expected weight error, got %v", err)
	}
}

func TestLoadRejectsForeignStageWeightKey(t *testing.T) {
	// "extended" only exists in cuts mode; in standard mode the key cannot
	// belong to any stage that will run.
	path := writeConfig(t, `
[embedding]
base_url = "http://localhost/v1"

[align.stage_weights]
extended = 1.0
`)
	if _, _, _, err := Load(path); err == nil || !strings.Contains(err.Error(), "stage_weights.extended") {
		t.Fatalf("expected foreign key error, got %v", err)
	}
}

func TestLoadRequiresBaseURL(t *testing.T) {
	t.Setenv("SUBWEAVE_EMBEDDING_BASE_URL", "")
	path := writeConfig(t, "")
	if _, _, _, err := Load(path); err == nil || !strings.Contains(err.Error(), "embedding.base_url") {
		t.Fatalf("expected base url error, got %v", err)
	}
}

func TestBaseURLFromEnvironment(t *testing.T) {
	t.Setenv("SUBWEAVE_EMBEDDING_BASE_URL", "http://env.example/v1")
	path := writeConfig(t, "")
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.BaseURL != "http://env.example/v1" {
		t.Fatalf("base url = %q", cfg.Embedding.BaseURL)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SUBWEAVE_EMBEDDING_BASE_URL", "http://env.example/v1")
	missing := filepath.Join(t.TempDir(), "nope.toml")
	cfg, resolved, exists, err := Load(missing)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatalf("missing file reported as existing at %q", resolved)
	}
	if cfg.Align.Mode != "standard" {
		t.Fatalf("defaults not applied: %+v", cfg.Align)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(body), "[embedding]") {
		t.Fatalf("sample missing embedding section")
	}
}

func TestValidateThresholdRanges(t *testing.T) {
	cfg := Default()
	cfg.Embedding.BaseURL = "http://localhost/v1"
	cfg.Align.AlignThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected threshold error")
	}
	cfg.Align.AlignThreshold = 0.5
	cfg.Align.HMMStayProb = 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected hmm probability error")
	}
}
