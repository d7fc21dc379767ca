package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "wallsky"

// Config file name.
const configFileName = "config.toml"

// Well-known file names inside the data directory.
const (
	indexFileName   = "index.json"
	journalFileName = "journal.db"
	pidFileName     = "wallsky.pid"
	pauseFileName   = "paused"
)

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/wallsky).
// On macOS, uses ~/Library/Application Support/wallsky per Apple guidelines.
// Other platforms fall back to ~/.config/wallsky.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return xdgDir("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// DefaultDataDir returns the platform-specific directory for application data
// (the availability index, the rotation journal, the PID file).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return xdgDir("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".local", "share", appName)
	}
}

// DefaultCacheDir returns the platform-specific directory for downloaded
// images. On Linux, respects XDG_CACHE_HOME (defaults to ~/.cache/wallsky).
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return xdgDir("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	case platformDarwin:
		return filepath.Join(home, "Library", "Caches", appName)
	default:
		return filepath.Join(home, ".cache", appName)
	}
}

// xdgDir resolves an XDG base directory variable with a fallback base,
// appending the application directory name.
func xdgDir(envVar, fallback string) string {
	if base := os.Getenv(envVar); base != "" {
		return filepath.Join(base, appName)
	}

	return filepath.Join(fallback, appName)
}

// DefaultConfigPath returns the full path to the default config file.
// This is used as the fallback when neither WALLSKY_CONFIG nor --config
// is specified.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// IndexPath returns the path of the availability index inside the data dir.
func IndexPath() string {
	return dataFile(indexFileName)
}

// JournalPath returns the path of the rotation journal database.
func JournalPath() string {
	return dataFile(journalFileName)
}

// PIDFilePath returns the path of the daemon PID file.
func PIDFilePath() string {
	return dataFile(pidFileName)
}

// PauseFilePath returns the path of the pause control file. The file's
// presence means "paused"; its content is an optional RFC3339 resume time.
func PauseFilePath() string {
	return dataFile(pauseFileName)
}

func dataFile(name string) string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, name)
}
