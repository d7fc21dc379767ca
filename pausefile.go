package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// The pause control file lives in the data directory. Its presence means
// rotation is paused; its content is an optional RFC3339 timestamp after
// which the daemon resumes on its own. Both the CLI and the daemon read
// and write it, so the paused state survives daemon restarts.

// writePauseFile marks rotation as paused. A zero until leaves the pause
// open-ended.
func writePauseFile(path string, until time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), pidDirPermissions); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	var content string
	if !until.IsZero() {
		content = until.Format(time.RFC3339) + "\n"
	}

	if err := os.WriteFile(path, []byte(content), pidFilePermissions); err != nil {
		return fmt.Errorf("writing pause file: %w", err)
	}

	return nil
}

// readPauseFile reports whether rotation is paused, and until when. A zero
// until means paused indefinitely. A malformed timestamp is treated as an
// indefinite pause rather than an error.
func readPauseFile(path string) (paused bool, until time.Time) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, time.Time{}
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return true, time.Time{}
	}

	t, err := time.Parse(time.RFC3339, content)
	if err != nil {
		return true, time.Time{}
	}

	return true, t
}

// clearPauseFile removes the pause marker. Missing file is not an error.
func clearPauseFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing pause file: %w", err)
	}

	return nil
}
