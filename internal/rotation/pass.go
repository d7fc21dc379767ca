package rotation

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/wallsky/wallsky/internal/journal"
	"github.com/wallsky/wallsky/internal/tracker"
)

// runPass rotates every bound display once, in ascending display ID
// order, then runs the cache eviction pass. Errors on one display never
// stop the others.
func (e *Engine) runPass(ctx context.Context) {
	passID := e.newPassID()

	e.logger.Debug("rotation pass starting", slog.String("pass_id", passID))

	applied := 0

	for _, id := range e.sortedDisplayIDs() {
		if ctx.Err() != nil {
			return
		}

		if e.rotateDisplay(ctx, passID, id) {
			applied++
		}
	}

	if evicted := e.trk.EvictIfOverCapacity(); evicted > 0 {
		e.logger.Info("cache trimmed after pass",
			slog.String("pass_id", passID),
			slog.Int("evicted", evicted),
		)
	}

	e.logger.Debug("rotation pass complete",
		slog.String("pass_id", passID),
		slog.Int("applied", applied),
	)
}

// exclusionsForLocked collects the filenames and themes currently shown on
// every display except displayID. Must be called with the mutex held.
func (e *Engine) exclusionsForLocked(displayID int) (names, themes map[string]bool) {
	names = make(map[string]bool)
	themes = make(map[string]bool)

	for id, b := range e.bindings {
		if id == displayID {
			continue
		}

		if b.currentFilename != "" {
			names[b.currentFilename] = true
		}

		if b.currentTheme != "" {
			themes[b.currentTheme] = true
		}
	}

	return names, themes
}

// rotateDisplay advances one display. Returns true when a wallpaper was
// applied.
func (e *Engine) rotateDisplay(ctx context.Context, passID string, displayID int) bool {
	e.mu.Lock()
	b, ok := e.bindings[displayID]
	if !ok {
		e.mu.Unlock()
		return false
	}

	if b.playlist != nil {
		return e.rotatePlaylistLocked(ctx, passID, b)
	}

	return e.rotateThemeLocked(ctx, passID, b)
}

// rotateThemeLocked handles a theme-bound display. Called with the
// mutex held; the lock is released around the fetch and the sink call.
func (e *Engine) rotateThemeLocked(ctx context.Context, passID string, b *binding) bool {
	theme := b.theme
	displayID := b.displayID
	excludeNames, excludeThemes := e.exclusionsForLocked(displayID)
	random := e.random
	sink := e.sink
	cursor := b.cursor
	e.mu.Unlock()

	rec, relaxed := e.selectThemeCandidate(theme, excludeNames, excludeThemes, random, cursor)
	if rec == nil {
		e.logger.Warn("no candidate for display, skipping",
			slog.Int("display", displayID),
			slog.String("theme", theme),
		)

		return false
	}

	if relaxed {
		e.logger.Debug("cross-display exclusion relaxed",
			slog.Int("display", displayID),
			slog.String("theme", theme),
		)
	}

	path, ok := e.resolvePath(ctx, theme, rec)
	if !ok {
		return false
	}

	if err := sink.Apply(ctx, displayID, path); err != nil {
		e.logger.Warn("sink failed for display, skipping",
			slog.Int("display", displayID),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return false
	}

	e.mu.Lock()
	b.currentFilename = rec.Filename
	b.currentTheme = theme
	b.cursor++
	e.mu.Unlock()

	e.trk.MarkDisplayed(theme, path)
	e.appendJournal(ctx, journal.Entry{
		PassID:    passID,
		DisplayID: displayID,
		Theme:     theme,
		Filename:  rec.Filename,
		LocalPath: path,
	})

	e.logger.Info("wallpaper applied",
		slog.Int("display", displayID),
		slog.String("theme", theme),
		slog.String("filename", rec.Filename),
	)

	return true
}

// selectThemeCandidate picks the next record for a theme-bound display.
// Exclusions are relaxed before any displayed image repeats; the cycle
// rolls over once when the theme is exhausted. Returns nil when the
// theme has no usable records at all.
func (e *Engine) selectThemeCandidate(
	theme string,
	excludeNames, excludeThemes map[string]bool,
	random bool,
	cursor int,
) (rec *tracker.ImageRecord, relaxed bool) {
	pick := func(candidates []tracker.ImageRecord) *tracker.ImageRecord {
		candidates = e.dropSuppressed(candidates)
		if len(candidates) == 0 {
			return nil
		}

		var idx int
		if random {
			idx = e.pickFunc(len(candidates))
		} else {
			idx = cursor % len(candidates)
		}

		return &candidates[idx]
	}

	// Strict: respect filename and theme exclusions.
	if !excludeThemes[theme] {
		if rec := pick(e.trk.Candidates(theme, excludeNames)); rec != nil {
			return rec, false
		}
	}

	// Relaxed: a temporary cross-display duplicate beats repeating a
	// displayed image.
	if rec := pick(e.trk.Candidates(theme, nil)); rec != nil {
		return rec, true
	}

	// Exhausted: roll the cycle over and retry once.
	e.trk.ResetCycle(theme)

	if !excludeThemes[theme] {
		if rec := pick(e.trk.Candidates(theme, excludeNames)); rec != nil {
			return rec, false
		}
	}

	if rec := pick(e.trk.Candidates(theme, nil)); rec != nil {
		return rec, true
	}

	return nil, false
}

// dropSuppressed filters out records whose download URL is under
// failure cooldown, unless the file is already cached.
func (e *Engine) dropSuppressed(candidates []tracker.ImageRecord) []tracker.ImageRecord {
	kept := candidates[:0]

	for _, rec := range candidates {
		if !rec.Downloaded && e.failures.shouldSkip(rec.SourceURL) {
			continue
		}

		kept = append(kept, rec)
	}

	return kept
}

// resolvePath turns a selected record into an on-disk path, fetching
// the image when it is not cached yet.
func (e *Engine) resolvePath(ctx context.Context, theme string, rec *tracker.ImageRecord) (string, bool) {
	if rec.Downloaded && rec.LocalPath != "" {
		if _, err := os.Stat(rec.LocalPath); err == nil {
			return rec.LocalPath, true
		}
	}

	path, err := e.fetcher.Fetch(ctx, theme, rec.Filename, rec.SourceURL)
	if err != nil {
		e.failures.recordFailure(rec.SourceURL, err.Error())
		e.logger.Warn("fetch failed, skipping display this pass",
			slog.String("theme", theme),
			slog.String("url", rec.SourceURL),
			slog.String("error", err.Error()),
		)

		return "", false
	}

	e.failures.recordSuccess(rec.SourceURL)
	e.trk.MarkDownloaded(theme, rec.SourceURL, path)

	return path, true
}

// rotatePlaylistLocked handles a playlist-bound display. The theme of a
// playlist entry is inferred from its parent directory name. Called
// with the mutex held; the lock is released around the sink call.
func (e *Engine) rotatePlaylistLocked(ctx context.Context, passID string, b *binding) bool {
	displayID := b.displayID
	excludeNames, excludeThemes := e.exclusionsForLocked(displayID)
	random := e.random
	sink := e.sink
	playlist := b.playlist
	cursor := b.cursor
	e.mu.Unlock()

	idx, ok := e.selectPlaylistEntry(playlist, cursor, excludeNames, excludeThemes, random)
	if !ok {
		e.logger.Warn("playlist has no usable entries, skipping display",
			slog.Int("display", displayID),
			slog.Int("entries", len(playlist)),
		)

		return false
	}

	path := playlist[idx]
	filename := filepath.Base(path)
	theme := playlistTheme(path)

	if err := sink.Apply(ctx, displayID, path); err != nil {
		e.logger.Warn("sink failed for display, skipping",
			slog.Int("display", displayID),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return false
	}

	e.mu.Lock()
	b.currentFilename = filename
	b.currentTheme = theme
	b.cursor = idx + 1
	e.mu.Unlock()

	e.appendJournal(ctx, journal.Entry{
		PassID:    passID,
		DisplayID: displayID,
		Theme:     theme,
		Filename:  filename,
		LocalPath: path,
	})

	e.logger.Info("wallpaper applied",
		slog.Int("display", displayID),
		slog.String("theme", theme),
		slog.String("filename", filename),
	)

	return true
}

// selectPlaylistEntry finds the next usable playlist index. One full
// scan of the list respects the cross-display exclusions; after that a
// duplicate is allowed rather than freezing the display. Entries whose
// file is missing are never usable.
func (e *Engine) selectPlaylistEntry(
	playlist []string,
	cursor int,
	excludeNames, excludeThemes map[string]bool,
	random bool,
) (int, bool) {
	if len(playlist) == 0 {
		return 0, false
	}

	usable := func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// Three tiers: entries clean of both exclusions, entries only
	// clashing on theme (unavoidable when playlists share a
	// directory), then any usable entry at all.
	preferred := make([]int, 0, len(playlist))
	nameClean := make([]int, 0, len(playlist))
	fallback := make([]int, 0, len(playlist))

	for offset := range playlist {
		idx := (cursor + offset) % len(playlist)
		path := playlist[idx]

		if !usable(path) {
			continue
		}

		fallback = append(fallback, idx)

		if excludeNames[filepath.Base(path)] {
			continue
		}

		nameClean = append(nameClean, idx)

		if excludeThemes[playlistTheme(path)] {
			continue
		}

		preferred = append(preferred, idx)
	}

	pool := preferred
	if len(pool) == 0 {
		pool = nameClean
	}

	if len(pool) == 0 {
		pool = fallback
	}

	if len(pool) == 0 {
		return 0, false
	}

	if random {
		return pool[e.pickFunc(len(pool))], true
	}

	return pool[0], true
}

// playlistTheme infers an entry's theme from its parent directory.
func playlistTheme(path string) string {
	return filepath.Base(filepath.Dir(path))
}

// appendJournal records an applied wallpaper, best-effort.
func (e *Engine) appendJournal(ctx context.Context, entry journal.Entry) {
	if e.jrnl == nil {
		return
	}

	if err := e.jrnl.Append(ctx, entry); err != nil {
		e.logger.Warn("journal append failed",
			slog.String("pass_id", entry.PassID),
			slog.String("error", err.Error()),
		)
	}
}
