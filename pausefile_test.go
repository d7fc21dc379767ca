package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPauseFile_IndefinitePause(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paused")

	paused, _ := readPauseFile(path)
	assert.False(t, paused, "missing file must read as not paused")

	require.NoError(t, writePauseFile(path, time.Time{}))

	paused, until := readPauseFile(path)
	assert.True(t, paused)
	assert.True(t, until.IsZero())
}

func TestPauseFile_TimedPause(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paused")

	deadline := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	require.NoError(t, writePauseFile(path, deadline))

	paused, until := readPauseFile(path)
	assert.True(t, paused)
	assert.True(t, until.Equal(deadline), "until = %v, want %v", until, deadline)
}

func TestPauseFile_MalformedTimestampMeansIndefinite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paused")
	require.NoError(t, os.WriteFile(path, []byte("next tuesday\n"), 0o644))

	paused, until := readPauseFile(path)
	assert.True(t, paused)
	assert.True(t, until.IsZero())
}

func TestClearPauseFile_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paused")

	require.NoError(t, writePauseFile(path, time.Time{}))
	require.NoError(t, clearPauseFile(path))
	require.NoError(t, clearPauseFile(path))

	paused, _ := readPauseFile(path)
	assert.False(t, paused)
}
