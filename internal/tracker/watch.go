package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FsWatcher abstracts fsnotify for testability.
type FsWatcher interface {
	Add(path string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

// fsnotifyWatcher adapts *fsnotify.Watcher to the FsWatcher interface.
type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func (f *fsnotifyWatcher) Add(path string) error            { return f.w.Add(path) }
func (f *fsnotifyWatcher) Close() error                     { return f.w.Close() }
func (f *fsnotifyWatcher) Events() <-chan fsnotify.Event    { return f.w.Events }
func (f *fsnotifyWatcher) Errors() <-chan error             { return f.w.Errors }

// CacheWatcher watches the cache directory for out-of-band deletions and
// heals affected records immediately instead of waiting for the next
// CachedPaths call. CachedPaths remains the safety net for events the
// watcher misses.
type CacheWatcher struct {
	mgr      *Manager
	cacheDir string
	logger   *slog.Logger

	newWatcher func() (FsWatcher, error) // injectable for tests
}

// NewCacheWatcher creates a watcher over cacheDir for the given manager.
func NewCacheWatcher(mgr *Manager, cacheDir string, logger *slog.Logger) *CacheWatcher {
	return &CacheWatcher{
		mgr:      mgr,
		cacheDir: cacheDir,
		logger:   logger,
		newWatcher: func() (FsWatcher, error) {
			w, err := fsnotify.NewWatcher()
			if err != nil {
				return nil, err
			}

			return &fsnotifyWatcher{w: w}, nil
		},
	}
}

// Run watches the cache directory and its theme subdirectories until the
// context is canceled. Returns nil on clean cancellation.
func (cw *CacheWatcher) Run(ctx context.Context) error {
	watcher, err := cw.newWatcher()
	if err != nil {
		return fmt.Errorf("tracker: creating cache watcher: %w", err)
	}
	defer watcher.Close()

	if err := cw.addWatches(watcher); err != nil {
		return err
	}

	cw.logger.Info("cache watcher started", slog.String("dir", cw.cacheDir))

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}

			cw.handleEvent(ev, watcher)

		case watchErr, ok := <-watcher.Errors():
			if !ok {
				return nil
			}

			cw.logger.Warn("cache watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// addWatches registers the cache root and every existing theme subdirectory.
// fsnotify watches are not recursive, so each subdirectory needs its own.
func (cw *CacheWatcher) addWatches(watcher FsWatcher) error {
	if err := os.MkdirAll(cw.cacheDir, indexDirPermissions); err != nil {
		return fmt.Errorf("tracker: creating cache dir %s: %w", cw.cacheDir, err)
	}

	if err := watcher.Add(cw.cacheDir); err != nil {
		return fmt.Errorf("tracker: watching cache dir %s: %w", cw.cacheDir, err)
	}

	entries, err := os.ReadDir(cw.cacheDir)
	if err != nil {
		return fmt.Errorf("tracker: listing cache dir %s: %w", cw.cacheDir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		sub := filepath.Join(cw.cacheDir, entry.Name())
		if err := watcher.Add(sub); err != nil {
			cw.logger.Warn("failed to watch theme directory",
				slog.String("dir", sub),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// handleEvent reacts to a single fsnotify event: removals heal the index,
// newly created theme directories get their own watch.
func (cw *CacheWatcher) handleEvent(ev fsnotify.Event, watcher FsWatcher) {
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		cw.mgr.HealPath(ev.Name)

	case ev.Has(fsnotify.Create):
		info, err := os.Stat(ev.Name)
		if err != nil || !info.IsDir() {
			return
		}

		if err := watcher.Add(ev.Name); err != nil {
			cw.logger.Warn("failed to watch new theme directory",
				slog.String("dir", ev.Name),
				slog.String("error", err.Error()),
			)
		}
	}
}

// HealPath resets any record whose cached file lives at path. Called by the
// cache watcher when a file disappears out of band.
func (m *Manager) HealPath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for theme, cat := range m.idx.Themes {
		img := findByPath(cat.Images, path)
		if img == nil {
			continue
		}

		m.logger.Warn("cached file removed out of band, resetting record",
			slog.String("theme", theme),
			slog.String("filename", img.Filename),
			slog.String("path", path),
		)

		img.Downloaded = false
		img.LocalPath = ""

		m.saveLocked()

		return
	}
}
