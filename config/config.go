package config

// Default values
const (
	DefaultContextCacheSize int64 = 256
	DefaultBatchConcurrency       = 8
)

// Config holds the tunables of the verifier
type Config struct {
	// ContextCacheSize bounds the number of parsed JSON-LD contexts kept in memory.
	ContextCacheSize int64
	// BatchConcurrency bounds the number of credentials verified at once by VerifyBatch.
	BatchConcurrency int
}

// New creates a new Config instance with the provided values.
// If a value is empty/zero, it will use the default value.
// Pass an empty Config{} to use all defaults.
func New(cfg Config) *Config {
	result := &Config{
		ContextCacheSize: DefaultContextCacheSize,
		BatchConcurrency: DefaultBatchConcurrency,
	}

	if cfg.ContextCacheSize > 0 {
		result.ContextCacheSize = cfg.ContextCacheSize
	}
	if cfg.BatchConcurrency > 0 {
		result.BatchConcurrency = cfg.BatchConcurrency
	}

	return result
}
