package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallsky/wallsky/internal/config"
	"github.com/wallsky/wallsky/internal/display"
	"github.com/wallsky/wallsky/internal/rotation"
	"github.com/wallsky/wallsky/internal/tracker"
)

type nopFetcher struct{}

func (nopFetcher) Fetch(context.Context, string, string, string) (string, error) {
	return "", errors.New("offline")
}

func testServeLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newServeTestEngine(t *testing.T) *rotation.Engine {
	t.Helper()

	trk, err := tracker.NewManager(filepath.Join(t.TempDir(), "index.json"), 25, 10, testServeLogger())
	require.NoError(t, err)

	eng, err := rotation.NewEngine(rotation.Config{
		Delay:   time.Hour,
		Tracker: trk,
		Fetcher: nopFetcher{},
		Sink:    display.NewLogSink(testServeLogger()),
		Logger:  testServeLogger(),
	})
	require.NoError(t, err)

	return eng
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, isImageFile("blue.jpg"))
	assert.True(t, isImageFile("aurora.PNG"))
	assert.True(t, isImageFile("ring.webp"))
	assert.False(t, isImageFile("notes.txt"))
	assert.False(t, isImageFile("animation.gif"))
	assert.False(t, isImageFile("noextension"))
}

func TestLoadPlaylist(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"b.jpg", "a.png", "skip.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "subdir"), 0o755))

	paths, err := loadPlaylist(dir)
	require.NoError(t, err)

	// ReadDir returns names sorted, so the playlist order is stable.
	want := []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.jpg")}
	assert.Equal(t, want, paths)
}

func TestLoadPlaylist_EmptyDirErrors(t *testing.T) {
	_, err := loadPlaylist(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no images")
}

func TestBindDisplays(t *testing.T) {
	playlistDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(playlistDir, "a.jpg"), []byte("x"), 0o644))

	eng := newServeTestEngine(t)

	displays := []config.ResolvedDisplay{
		{ID: 0, Theme: "Mars"},
		{ID: 1, Playlist: playlistDir},
		{ID: 2, Theme: "Earth"},
		{ID: 3, Theme: "Ignored", Disabled: true},
	}

	themes, err := bindDisplays(eng, displays, testServeLogger())
	require.NoError(t, err)

	// Distinct bound themes, sorted; playlists and disabled displays
	// contribute none.
	assert.Equal(t, []string{"Earth", "Mars"}, themes)

	info, err := eng.PlaylistInfo(1)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Total)
}

func TestBindDisplays_MissingPlaylistDirErrors(t *testing.T) {
	eng := newServeTestEngine(t)

	displays := []config.ResolvedDisplay{
		{ID: 0, Playlist: filepath.Join(t.TempDir(), "nope")},
	}

	_, err := bindDisplays(eng, displays, testServeLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display 0")
}

func TestBuildSink(t *testing.T) {
	logger := testServeLogger()

	// No command: dry-run log sink.
	sink, err := buildSink(&config.Resolved{}, logger)
	require.NoError(t, err)
	assert.IsType(t, &display.LogSink{}, sink)

	// Command without {path} is rejected.
	_, err = buildSink(&config.Resolved{SinkCommand: "feh --bg-fill"}, logger)
	require.Error(t, err)

	// Valid command.
	sink, err = buildSink(&config.Resolved{SinkCommand: "feh --bg-fill {path}"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &display.CommandSink{}, sink)
}
