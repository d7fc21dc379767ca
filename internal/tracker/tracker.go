// Package tracker maintains the durable availability index: per-theme image
// catalogs with download and display state, cycle bookkeeping, and the global
// cache capacity bound. The index is a JSON document on disk; every mutation
// is persisted with a best-effort atomic write so that daemon restarts resume
// mid-cycle.
package tracker

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ImageRecord is one known image within a theme catalog. Invariants:
// Downloaded=false implies LocalPath is empty, and Displayed only becomes
// true after a confirmed hand-off to a display sink.
type ImageRecord struct {
	Filename        string     `json:"filename"`
	SourceURL       string     `json:"url"`
	Downloaded      bool       `json:"downloaded"`
	LocalPath       string     `json:"local_path,omitempty"`
	Displayed       bool       `json:"displayed"`
	DisplayCount    int        `json:"display_count"`
	LastDisplayedAt *time.Time `json:"last_displayed,omitempty"`
}

// ThemeCatalog is the tracker's record of one theme: its source URL, its
// discovered images in discovery order, and cycle bookkeeping. CycleCounter
// increments only on a full rollover (every image displayed, all flags reset
// in one step).
type ThemeCatalog struct {
	SourceURL    string         `json:"url"`
	Images       []*ImageRecord `json:"images"`
	LastScanAt   *time.Time     `json:"last_scan,omitempty"`
	CycleCounter int            `json:"current_cycle"`
}

// Settings holds the global knobs persisted alongside the catalogs.
type Settings struct {
	MaxCachedImages   int        `json:"max_cached_images"`
	PrefetchBatchSize int        `json:"prefetch_count"`
	LastGlobalScanAt  *time.Time `json:"last_global_scan,omitempty"`
}

// ImageStub is a discovered {filename, url} pair supplied by the metadata
// source when updating a catalog.
type ImageStub struct {
	Filename string
	URL      string
}

// Stats summarizes one theme's catalog for status output.
type Stats struct {
	Total      int
	Downloaded int
	Displayed  int
	Remaining  int
	Cycle      int
}

// index is the JSON document written to disk. Unknown fields in an existing
// file are ignored on load and missing fields keep their zero values, so
// older and newer daemons can share an index.
type index struct {
	Themes   map[string]*ThemeCatalog `json:"themes"`
	Settings Settings                 `json:"settings"`
}

// Manager is the sole owner of the availability index. All operations are
// serialized behind one mutex; contention is low because rotation passes are
// minutes apart.
type Manager struct {
	mu  sync.Mutex
	idx index

	path   string
	logger *slog.Logger

	nowFunc    func() time.Time // injectable for deterministic tests
	removeFunc func(string) error
	statFunc   func(string) (os.FileInfo, error)
}

// NewManager loads the index at path (or starts a fresh one) and applies the
// configured capacity settings. Settings from config win over whatever the
// index file recorded, so editing the config takes effect on restart.
func NewManager(path string, maxCached, prefetchBatch int, logger *slog.Logger) (*Manager, error) {
	m := &Manager{
		path:       path,
		logger:     logger,
		nowFunc:    time.Now,
		removeFunc: os.Remove,
		statFunc:   os.Stat,
	}

	idx, err := loadIndex(path)
	if err != nil {
		return nil, err
	}

	m.idx = idx
	m.idx.Settings.MaxCachedImages = maxCached
	m.idx.Settings.PrefetchBatchSize = prefetchBatch

	logger.Info("availability index loaded",
		slog.String("path", path),
		slog.Int("themes", len(m.idx.Themes)),
	)

	return m, nil
}

// UpdateCatalog merges newly discovered images into a theme's catalog.
// Merging is by URL identity: existing records are never removed or mutated,
// so download and display state survives rescans. Re-supplying the same set
// is a no-op beyond the scan timestamp refresh.
func (m *Manager) UpdateCatalog(theme, sourceURL string, images []ImageStub) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cat, ok := m.idx.Themes[theme]
	if !ok {
		cat = &ThemeCatalog{SourceURL: sourceURL}
		m.idx.Themes[theme] = cat
	}

	cat.SourceURL = sourceURL

	known := make(map[string]bool, len(cat.Images))
	for _, img := range cat.Images {
		known[img.SourceURL] = true
	}

	added := 0

	for _, stub := range images {
		if known[stub.URL] {
			continue
		}

		cat.Images = append(cat.Images, &ImageRecord{
			Filename:  stub.Filename,
			SourceURL: stub.URL,
		})
		known[stub.URL] = true
		added++
	}

	now := m.nowFunc()
	cat.LastScanAt = &now

	if added > 0 {
		m.logger.Info("catalog updated",
			slog.String("theme", theme),
			slog.Int("new_images", added),
			slog.Int("total", len(cat.Images)),
		)
	}

	m.saveLocked()
}

// NextDownloadBatch returns up to count records worth downloading for the
// theme: undownloaded records first, then undisplayed records regardless of
// download state. A fully displayed catalog triggers a cycle rollover before
// selection. Never returns more records than the catalog holds.
func (m *Manager) NextDownloadBatch(theme string, count int) []ImageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	cat, ok := m.idx.Themes[theme]
	if !ok {
		return nil
	}

	if count <= 0 {
		count = m.idx.Settings.PrefetchBatchSize
	}

	batch := filterRecords(cat.Images, func(r *ImageRecord) bool { return !r.Downloaded })

	if len(batch) == 0 {
		batch = filterRecords(cat.Images, func(r *ImageRecord) bool { return !r.Displayed })

		if len(batch) == 0 {
			// Full cycle complete: roll over, then select from the fresh set.
			m.resetCycleLocked(theme, cat)

			batch = filterRecords(cat.Images, func(r *ImageRecord) bool { return !r.Downloaded })
			if len(batch) == 0 {
				batch = filterRecords(cat.Images, func(r *ImageRecord) bool { return !r.Displayed })
			}
		}
	}

	if len(batch) > count {
		batch = batch[:count]
	}

	m.logger.Debug("download batch selected",
		slog.String("theme", theme),
		slog.Int("batch", len(batch)),
	)

	return batch
}

// CachedPaths returns the local paths of downloaded records whose backing
// file still exists. Records whose file has vanished out of band are reset
// to undownloaded as a side effect, so the next batch re-fetches them.
func (m *Manager) CachedPaths(theme string, onlyUndisplayed bool) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	cat, ok := m.idx.Themes[theme]
	if !ok {
		return nil
	}

	var paths []string

	healed := 0

	for _, img := range cat.Images {
		if !img.Downloaded || img.LocalPath == "" {
			continue
		}

		if onlyUndisplayed && img.Displayed {
			continue
		}

		if _, err := m.statFunc(img.LocalPath); err != nil {
			m.logger.Warn("cached file missing, resetting record",
				slog.String("theme", theme),
				slog.String("filename", img.Filename),
				slog.String("path", img.LocalPath),
			)

			img.Downloaded = false
			img.LocalPath = ""
			healed++

			continue
		}

		paths = append(paths, img.LocalPath)
	}

	if healed > 0 {
		m.saveLocked()
	}

	return paths
}

// Candidates returns copies of the theme's undisplayed records whose
// filenames are not in the exclude set. The rotation engine uses this with
// the currently-shown filenames of other displays, relaxing the exclusion
// itself when the set comes back empty.
func (m *Manager) Candidates(theme string, exclude map[string]bool) []ImageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	cat, ok := m.idx.Themes[theme]
	if !ok {
		return nil
	}

	return filterRecords(cat.Images, func(r *ImageRecord) bool {
		return !r.Displayed && !exclude[r.Filename]
	})
}

// MarkDownloaded records a completed download for the image with the given
// URL. Idempotent: re-marking an already downloaded record only refreshes
// the stored path.
func (m *Manager) MarkDownloaded(theme, url, localPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cat, ok := m.idx.Themes[theme]
	if !ok {
		return
	}

	for _, img := range cat.Images {
		if img.SourceURL != url {
			continue
		}

		img.Downloaded = true
		img.LocalPath = localPath

		m.saveLocked()

		return
	}
}

// MarkDisplayed records a confirmed hand-off to a display sink. The image is
// matched by local path first, then by bare filename, since eviction clears
// LocalPath but display state must stay addressable. Each call bumps the
// display count and stamps the display time.
func (m *Manager) MarkDisplayed(theme, pathOrFilename string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cat, ok := m.idx.Themes[theme]
	if !ok {
		return
	}

	img := findByPath(cat.Images, pathOrFilename)
	if img == nil {
		img = findByFilename(cat.Images, filepath.Base(pathOrFilename))
	}

	if img == nil {
		m.logger.Warn("mark displayed: no matching record",
			slog.String("theme", theme),
			slog.String("image", pathOrFilename),
		)

		return
	}

	now := m.nowFunc()
	img.Displayed = true
	img.DisplayCount++
	img.LastDisplayedAt = &now

	m.saveLocked()
}

// ResetCycle starts a new display cycle for the theme: every record's
// displayed flag is cleared and the cycle counter advances, in one step.
func (m *Manager) ResetCycle(theme string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cat, ok := m.idx.Themes[theme]
	if !ok {
		return
	}

	m.resetCycleLocked(theme, cat)
	m.saveLocked()
}

func (m *Manager) resetCycleLocked(theme string, cat *ThemeCatalog) {
	cat.CycleCounter++

	for _, img := range cat.Images {
		img.Displayed = false
	}

	m.logger.Info("display cycle rolled over",
		slog.String("theme", theme),
		slog.Int("cycle", cat.CycleCounter),
	)
}

// ShouldRescan reports whether the last global catalog scan is older than
// maxAge (or has never happened).
func (m *Manager) ShouldRescan(maxAge time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	last := m.idx.Settings.LastGlobalScanAt
	if last == nil {
		return true
	}

	return m.nowFunc().Sub(*last) > maxAge
}

// MarkGlobalScan stamps the global scan clock.
func (m *Manager) MarkGlobalScan() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	m.idx.Settings.LastGlobalScanAt = &now

	m.saveLocked()
}

// Stats returns the per-theme catalog summary. Unknown themes yield zeroes.
func (m *Manager) Stats(theme string) Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	cat, ok := m.idx.Themes[theme]
	if !ok {
		return Stats{}
	}

	s := Stats{
		Total: len(cat.Images),
		Cycle: cat.CycleCounter,
	}

	for _, img := range cat.Images {
		if img.Downloaded {
			s.Downloaded++
		}

		if img.Displayed {
			s.Displayed++
		} else {
			s.Remaining++
		}
	}

	return s
}

// Themes returns the known theme names in sorted order.
func (m *Manager) Themes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.idx.Themes))
	for name := range m.idx.Themes {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ThemeSourceURL returns the recorded source URL for a theme, or "".
func (m *Manager) ThemeSourceURL(theme string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	cat, ok := m.idx.Themes[theme]
	if !ok {
		return ""
	}

	return cat.SourceURL
}

// filterRecords returns copies of the records matching keep, preserving
// catalog order.
func filterRecords(images []*ImageRecord, keep func(*ImageRecord) bool) []ImageRecord {
	var out []ImageRecord

	for _, img := range images {
		if keep(img) {
			out = append(out, *img)
		}
	}

	return out
}

func findByPath(images []*ImageRecord, path string) *ImageRecord {
	for _, img := range images {
		if img.LocalPath != "" && img.LocalPath == path {
			return img
		}
	}

	return nil
}

func findByFilename(images []*ImageRecord, filename string) *ImageRecord {
	for _, img := range images {
		if img.Filename == filename {
			return img
		}
	}

	return nil
}
