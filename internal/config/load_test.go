package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestLoad_ValidFullConfig(t *testing.T) {
	tomlContent := `
[cache]
dir = "/tmp/wallsky-cache"
max_cached_images = 50
prefetch_batch_size = 5
rescan_interval = "12h"

[rotation]
delay = "30m"
random = false
shutdown_timeout = "5s"

[source]
archive_url = "https://example.com/wallpapers/"
rate_limit = "2s"
request_timeout = "20s"
user_agent = "test-agent/1.0"

[sink]
command = "swww img {path}"

[logging]
log_level = "debug"

[display.0]
theme = "Earth"

[display.1]
playlist = "/home/user/Pictures/walls"
disabled = true
`

	path := writeTestConfig(t, tomlContent)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/wallsky-cache", cfg.Cache.Dir)
	assert.Equal(t, 50, cfg.Cache.MaxCachedImages)
	assert.Equal(t, 5, cfg.Cache.PrefetchBatchSize)
	assert.Equal(t, "30m", cfg.Rotation.Delay)
	assert.False(t, cfg.Rotation.Random)
	assert.Equal(t, "https://example.com/wallpapers/", cfg.Source.ArchiveURL)
	assert.Equal(t, "swww img {path}", cfg.Sink.Command)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)

	require.Len(t, cfg.Displays, 2)
	assert.Equal(t, "Earth", cfg.Displays["0"].Theme)
	assert.Equal(t, "/home/user/Pictures/walls", cfg.Displays["1"].Playlist)
	assert.True(t, cfg.Displays["1"].Disabled)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, `
[rotation]
delay = "1h"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1h", cfg.Rotation.Delay)
	assert.Equal(t, defaultMaxCachedImages, cfg.Cache.MaxCachedImages)
	assert.Equal(t, defaultPrefetchBatchSize, cfg.Cache.PrefetchBatchSize)
	assert.Equal(t, defaultArchiveURL, cfg.Source.ArchiveURL)
	assert.True(t, cfg.Rotation.Random)
}

func TestLoad_UnknownKeysRejected(t *testing.T) {
	path := writeTestConfig(t, `
[rotation]
dely = "1h"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config keys")
	assert.Contains(t, err.Error(), "rotation.dely")
}

func TestLoadOrDefault_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, defaultDelay, cfg.Rotation.Delay)
	assert.Equal(t, defaultMaxCachedImages, cfg.Cache.MaxCachedImages)
}

func TestResolve_OverrideChain(t *testing.T) {
	path := writeTestConfig(t, `
[cache]
dir = "/from/file"

[rotation]
delay = "10m"
`)

	cacheDir := "/from/cli"
	random := false

	resolved, err := Resolve(
		EnvOverrides{CacheDir: "/from/env", ArchiveURL: "https://env.example.com/w/"},
		CLIOverrides{ConfigPath: path, CacheDir: &cacheDir, Random: &random},
	)
	require.NoError(t, err)

	// CLI beats env beats file.
	assert.Equal(t, "/from/cli", resolved.CacheDir)
	// Env beats file defaults when no CLI flag is given.
	assert.Equal(t, "https://env.example.com/w/", resolved.ArchiveURL)
	assert.Equal(t, 10*time.Minute, resolved.Delay)
	assert.False(t, resolved.Random)
}

func TestResolve_ParsesDayDelay(t *testing.T) {
	path := writeTestConfig(t, `
[rotation]
delay = "1d"
`)

	resolved, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, resolved.Delay)
}

func TestResolve_InvalidDelayRejected(t *testing.T) {
	path := writeTestConfig(t, `
[rotation]
delay = "soon"
`)

	_, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rotation.delay")
}

func TestResolve_DisplayValidation(t *testing.T) {
	tests := []struct {
		name    string
		section string
		wantErr string
	}{
		{
			name:    "neither theme nor playlist",
			section: "[display.0]\ndisabled = false\n",
			wantErr: "must set either theme or playlist",
		},
		{
			name:    "both theme and playlist",
			section: "[display.0]\ntheme = \"Earth\"\nplaylist = \"/walls\"\n",
			wantErr: "pick one",
		},
		{
			name:    "non-numeric display key",
			section: "[display.primary]\ntheme = \"Earth\"\n",
			wantErr: "not a valid display ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestConfig(t, tt.section)

			_, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolve_DisplaysSortedByID(t *testing.T) {
	path := writeTestConfig(t, `
[display.2]
theme = "Mars"

[display.0]
theme = "Earth"

[display.1]
playlist = "/walls"
`)

	resolved, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)

	require.Len(t, resolved.Displays, 3)
	assert.Equal(t, 0, resolved.Displays[0].ID)
	assert.Equal(t, 1, resolved.Displays[1].ID)
	assert.Equal(t, 2, resolved.Displays[2].ID)
}

func TestParseDuration_Formats(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"90s", 90 * time.Second},
		{"15m", 15 * time.Minute},
		{"2h30m", 2*time.Hour + 30*time.Minute},
		{"1d", 24 * time.Hour},
		{"2d12h", 60 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDuration_Invalid(t *testing.T) {
	for _, input := range []string{"", "soon", "-5m", "0s", "5w"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDuration(input)
			assert.Error(t, err)
		})
	}
}
