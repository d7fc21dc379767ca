package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// File permissions for the index and its directory.
const (
	indexFilePermissions = 0o644
	indexDirPermissions  = 0o755
)

// loadIndex reads the JSON index at path. A missing file yields a fresh
// empty index. Unknown fields are ignored and missing fields default, so an
// index written by a newer or older build loads cleanly.
func loadIndex(path string) (index, error) {
	idx := index{Themes: make(map[string]*ThemeCatalog)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return idx, nil
		}

		return idx, fmt.Errorf("tracker: reading index %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("tracker: parsing index %s: %w", path, err)
	}

	if idx.Themes == nil {
		idx.Themes = make(map[string]*ThemeCatalog)
	}

	for _, cat := range idx.Themes {
		// Re-establish the record invariant in case the file was hand-edited.
		for _, img := range cat.Images {
			if !img.Downloaded {
				img.LocalPath = ""
			}
		}
	}

	return idx, nil
}

// saveLocked writes the index atomically (temp file + rename). Persistence
// failures are logged, not fatal: the in-memory state is authoritative for
// the running daemon and the next successful save catches up.
func (m *Manager) saveLocked() {
	data, err := json.MarshalIndent(&m.idx, "", "  ")
	if err != nil {
		m.logger.Error("marshaling index failed", slog.String("error", err.Error()))
		return
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, indexDirPermissions); err != nil {
		m.logger.Error("creating index directory failed",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)

		return
	}

	tmp, err := os.CreateTemp(dir, ".index-*.json")
	if err != nil {
		m.logger.Error("creating temp index failed", slog.String("error", err.Error()))
		return
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		m.logger.Error("writing temp index failed", slog.String("error", err.Error()))

		return
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		m.logger.Error("closing temp index failed", slog.String("error", err.Error()))

		return
	}

	if err := os.Chmod(tmpName, indexFilePermissions); err != nil {
		m.logger.Warn("setting index permissions failed", slog.String("error", err.Error()))
	}

	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName)
		m.logger.Error("replacing index failed",
			slog.String("path", m.path),
			slog.String("error", err.Error()),
		)
	}
}
