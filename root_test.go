package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallsky/wallsky/internal/config"
)

// resetCLIState restores the global flag and config state after a test.
func resetCLIState(t *testing.T) {
	t.Helper()

	savedCfg := resolvedCfg
	savedVerbose := flagVerbose
	savedQuiet := flagQuiet

	t.Cleanup(func() {
		resolvedCfg = savedCfg
		flagVerbose = savedVerbose
		flagQuiet = savedQuiet
	})
}

func TestBuildLogger_LevelFromConfig(t *testing.T) {
	resetCLIState(t)

	flagVerbose = false
	flagQuiet = false
	resolvedCfg = &config.Resolved{LogLevel: "warn"}

	logger := buildLogger()
	ctx := context.Background()

	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
}

func TestBuildLogger_VerboseOverridesConfig(t *testing.T) {
	resetCLIState(t)

	flagVerbose = true
	flagQuiet = false
	resolvedCfg = &config.Resolved{LogLevel: "error"}

	logger := buildLogger()

	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_QuietOverridesConfig(t *testing.T) {
	resetCLIState(t)

	flagVerbose = false
	flagQuiet = true
	resolvedCfg = &config.Resolved{LogLevel: "debug"}

	logger := buildLogger()
	ctx := context.Background()

	assert.False(t, logger.Enabled(ctx, slog.LevelWarn))
	assert.True(t, logger.Enabled(ctx, slog.LevelError))
}

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()

	want := []string{"serve", "rotate", "pause", "resume", "toggle", "status", "themes", "history"}
	got := make(map[string]bool)

	for _, sub := range cmd.Commands() {
		got[sub.Name()] = true
	}

	for _, name := range want {
		require.True(t, got[name], "missing subcommand %s", name)
	}
}
