// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for wallsky. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
package config

// Config is the top-level configuration structure parsed from a TOML file.
// Display sections are keyed by display ID, e.g. [display.0] and [display.1].
type Config struct {
	Cache    CacheConfig              `toml:"cache"`
	Rotation RotationConfig           `toml:"rotation"`
	Source   SourceConfig             `toml:"source"`
	Sink     SinkConfig               `toml:"sink"`
	Logging  LoggingConfig            `toml:"logging"`
	Displays map[string]DisplayConfig `toml:"display"`
}

// CacheConfig controls the on-disk image cache: where it lives, how many
// downloaded images may exist at once across all themes, and how many images
// a single prefetch batch may request.
type CacheConfig struct {
	Dir               string `toml:"dir"`
	MaxCachedImages   int    `toml:"max_cached_images"`
	PrefetchBatchSize int    `toml:"prefetch_batch_size"`
	RescanInterval    string `toml:"rescan_interval"`
}

// RotationConfig controls the rotation timer. Delay accepts Go duration
// syntax plus a "d" suffix for days (e.g. "15m", "2h", "1d").
type RotationConfig struct {
	Delay           string `toml:"delay"`
	Random          bool   `toml:"random"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// SourceConfig controls the remote catalog client: the archive root URL,
// the minimum spacing between requests, and HTTP behavior.
type SourceConfig struct {
	ArchiveURL     string `toml:"archive_url"`
	RateLimit      string `toml:"rate_limit"`
	RequestTimeout string `toml:"request_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// SinkConfig controls how a selected image is applied to a display.
// Command is run per selection with {display} and {path} placeholders
// substituted; an empty command logs the selection instead of applying it.
type SinkConfig struct {
	Command string `toml:"command"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// DisplayConfig binds one display to an image source: either a theme name
// resolved through the availability tracker, or a playlist directory of
// local images. Exactly one of Theme and Playlist must be set.
type DisplayConfig struct {
	Theme    string `toml:"theme"`
	Playlist string `toml:"playlist"`
	Disabled bool   `toml:"disabled"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value": --random=false is different from
// not passing --random at all.
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	CacheDir   *string // --cache-dir flag
	Delay      *string // --delay flag
	Random     *bool   // --random flag
}
