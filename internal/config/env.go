package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig     = "WALLSKY_CONFIG"
	EnvCacheDir   = "WALLSKY_CACHE_DIR"
	EnvArchiveURL = "WALLSKY_ARCHIVE_URL"
)

// EnvOverrides holds values derived from environment variables.
// These sit between the config file and CLI flags in the override chain.
type EnvOverrides struct {
	ConfigPath string // WALLSKY_CONFIG: override config file path
	CacheDir   string // WALLSKY_CACHE_DIR: image cache directory override
	ArchiveURL string // WALLSKY_ARCHIVE_URL: catalog root override
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		CacheDir:   os.Getenv(EnvCacheDir),
		ArchiveURL: os.Getenv(EnvArchiveURL),
	}
}
