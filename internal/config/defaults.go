package config

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain and match the archive's published usage
// guidelines (one request per second, daily catalog rescans).
const (
	defaultMaxCachedImages   = 25
	defaultPrefetchBatchSize = 10
	defaultRescanInterval    = "24h"
	defaultDelay             = "15m"
	defaultShutdownTimeout   = "10s"
	defaultArchiveURL        = "https://universe-photo-archive.eu/wallpapers/"
	defaultRateLimit         = "1s"
	defaultRequestTimeout    = "10s"
	defaultUserAgent         = "wallsky/1.0"
	defaultLogLevel          = "info"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Dir:               DefaultCacheDir(),
			MaxCachedImages:   defaultMaxCachedImages,
			PrefetchBatchSize: defaultPrefetchBatchSize,
			RescanInterval:    defaultRescanInterval,
		},
		Rotation: RotationConfig{
			Delay:           defaultDelay,
			Random:          true,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Source: SourceConfig{
			ArchiveURL:     defaultArchiveURL,
			RateLimit:      defaultRateLimit,
			RequestTimeout: defaultRequestTimeout,
			UserAgent:      defaultUserAgent,
		},
		Logging: LoggingConfig{
			LogLevel: defaultLogLevel,
		},
		Displays: make(map[string]DisplayConfig),
	}
}
