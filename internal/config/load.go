package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Resolved is the effective configuration after the override chain has been
// applied and every duration string has been parsed. This is what the daemon
// and the CLI commands actually consume.
type Resolved struct {
	ConfigPath string
	CacheDir   string
	DataDir    string

	MaxCachedImages   int
	PrefetchBatchSize int
	RescanInterval    time.Duration

	Delay           time.Duration
	Random          bool
	ShutdownTimeout time.Duration

	ArchiveURL     string
	RateLimit      time.Duration
	RequestTimeout time.Duration
	UserAgent      string

	SinkCommand string
	LogLevel    string

	Displays []ResolvedDisplay
}

// ResolvedDisplay is one display binding with its ID parsed from the TOML
// section key. Displays are sorted by ID so rotation order is deterministic.
type ResolvedDisplay struct {
	ID       int
	Theme    string
	Playlist string
	Disabled bool
}

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal; silently ignoring a typo in a
// config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values. This supports the zero-config
// first-run experience.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
// The precedence order ensures CLI flags always win, matching user
// expectations for one-off overrides without editing the config file.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	// 1. Resolve config path: CLI > env > default.
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Load config file (returns defaults if no file exists).
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	// 3. Apply env overrides.
	if env.CacheDir != "" {
		cfg.Cache.Dir = env.CacheDir
	}

	if env.ArchiveURL != "" {
		cfg.Source.ArchiveURL = env.ArchiveURL
	}

	// 4. Apply CLI overrides (pointer fields: nil = not specified).
	if cli.CacheDir != nil {
		cfg.Cache.Dir = *cli.CacheDir
	}

	if cli.Delay != nil {
		cfg.Rotation.Delay = *cli.Delay
	}

	if cli.Random != nil {
		cfg.Rotation.Random = *cli.Random
	}

	// 5. Parse durations and validate the final result.
	resolved, err := resolve(cfg, cfgPath)
	if err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return resolved, nil
}

// resolve parses duration strings, sorts display bindings, and validates
// the assembled Resolved config.
func resolve(cfg *Config, cfgPath string) (*Resolved, error) {
	r := &Resolved{
		ConfigPath:        cfgPath,
		CacheDir:          cfg.Cache.Dir,
		DataDir:           DefaultDataDir(),
		MaxCachedImages:   cfg.Cache.MaxCachedImages,
		PrefetchBatchSize: cfg.Cache.PrefetchBatchSize,
		Random:            cfg.Rotation.Random,
		ArchiveURL:        cfg.Source.ArchiveURL,
		UserAgent:         cfg.Source.UserAgent,
		SinkCommand:       cfg.Sink.Command,
		LogLevel:          cfg.Logging.LogLevel,
	}

	var err error

	if r.Delay, err = ParseDuration(cfg.Rotation.Delay); err != nil {
		return nil, fmt.Errorf("rotation.delay %q: %w", cfg.Rotation.Delay, err)
	}

	if r.RescanInterval, err = ParseDuration(cfg.Cache.RescanInterval); err != nil {
		return nil, fmt.Errorf("cache.rescan_interval %q: %w", cfg.Cache.RescanInterval, err)
	}

	if r.ShutdownTimeout, err = ParseDuration(cfg.Rotation.ShutdownTimeout); err != nil {
		return nil, fmt.Errorf("rotation.shutdown_timeout %q: %w", cfg.Rotation.ShutdownTimeout, err)
	}

	if r.RateLimit, err = ParseDuration(cfg.Source.RateLimit); err != nil {
		return nil, fmt.Errorf("source.rate_limit %q: %w", cfg.Source.RateLimit, err)
	}

	if r.RequestTimeout, err = ParseDuration(cfg.Source.RequestTimeout); err != nil {
		return nil, fmt.Errorf("source.request_timeout %q: %w", cfg.Source.RequestTimeout, err)
	}

	if r.MaxCachedImages <= 0 {
		return nil, fmt.Errorf("cache.max_cached_images must be positive, got %d", r.MaxCachedImages)
	}

	if r.PrefetchBatchSize <= 0 {
		return nil, fmt.Errorf("cache.prefetch_batch_size must be positive, got %d", r.PrefetchBatchSize)
	}

	if r.CacheDir == "" {
		return nil, fmt.Errorf("cache.dir is empty and no platform default could be determined")
	}

	if r.Displays, err = resolveDisplays(cfg.Displays); err != nil {
		return nil, err
	}

	return r, nil
}

// resolveDisplays parses display section keys into IDs, validates each
// binding, and returns the bindings sorted by display ID.
func resolveDisplays(displays map[string]DisplayConfig) ([]ResolvedDisplay, error) {
	out := make([]ResolvedDisplay, 0, len(displays))

	for key, dc := range displays {
		id, err := strconv.Atoi(key)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("display section key %q is not a valid display ID", key)
		}

		if dc.Theme == "" && dc.Playlist == "" {
			return nil, fmt.Errorf("display.%s must set either theme or playlist", key)
		}

		if dc.Theme != "" && dc.Playlist != "" {
			return nil, fmt.Errorf("display.%s sets both theme and playlist; pick one", key)
		}

		out = append(out, ResolvedDisplay{
			ID:       id,
			Theme:    dc.Theme,
			Playlist: dc.Playlist,
			Disabled: dc.Disabled,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}
