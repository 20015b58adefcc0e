package config

const (
	defaultLogDir                  = "~/.local/share/subweave/logs"
	defaultLogRetentionDays        = 60
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultEmbeddingModel          = "sentence-transformers/LaBSE"
	defaultEmbeddingTimeoutSeconds = 30
	defaultEmbeddingBatchSize      = 32
	defaultEmbeddingCacheRetention = 90
	defaultAlignMode               = "standard"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			CacheDir: defaultCacheDir(),
		},
		Embedding: Embedding{
			Model:          defaultEmbeddingModel,
			TimeoutSeconds: defaultEmbeddingTimeoutSeconds,
			BatchSize:      defaultEmbeddingBatchSize,
			CacheEnabled:   true,
			CacheRetention: defaultEmbeddingCacheRetention,
		},
		Align: Align{
			Mode: defaultAlignMode,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
