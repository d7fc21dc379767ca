package tracker

import (
	"log/slog"
	"sort"
)

// evictionCandidate pairs a record with its theme for the global sweep.
type evictionCandidate struct {
	theme  string
	record *ImageRecord
}

// EvictIfOverCapacity enforces the global cache bound. When the number of
// downloaded records across all themes exceeds MaxCachedImages, it deletes
// the backing files of displayed records, oldest last-shown first across
// themes, until the bound holds. Records never shown this cycle are
// protected: evicting one would starve a display mid-cycle. File deletion is
// best-effort; the record state advances even when the unlink fails so a
// single bad file cannot wedge the cache.
func (m *Manager) EvictIfOverCapacity() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var downloaded []evictionCandidate

	for theme, cat := range m.idx.Themes {
		for _, img := range cat.Images {
			if img.Downloaded {
				downloaded = append(downloaded, evictionCandidate{theme: theme, record: img})
			}
		}
	}

	limit := m.idx.Settings.MaxCachedImages
	if len(downloaded) <= limit {
		return 0
	}

	m.logger.Info("cache over capacity",
		slog.Int("downloaded", len(downloaded)),
		slog.Int("limit", limit),
	)

	candidates := make([]evictionCandidate, 0, len(downloaded))

	for _, c := range downloaded {
		if c.record.Displayed {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 {
		m.logger.Warn("cache over capacity but no displayed records to evict")
		return 0
	}

	// Oldest shown first. Records without a timestamp sort first; they were
	// displayed before the index recorded times, so they are the safest cuts.
	sort.SliceStable(candidates, func(i, j int) bool {
		ti, tj := candidates[i].record.LastDisplayedAt, candidates[j].record.LastDisplayedAt

		switch {
		case ti == nil:
			return tj != nil
		case tj == nil:
			return false
		default:
			return ti.Before(*tj)
		}
	})

	toEvict := len(downloaded) - limit
	if toEvict > len(candidates) {
		toEvict = len(candidates)
	}

	evicted := 0

	for _, c := range candidates[:toEvict] {
		if err := m.removeFunc(c.record.LocalPath); err != nil {
			m.logger.Warn("evicting cached file failed",
				slog.String("theme", c.theme),
				slog.String("path", c.record.LocalPath),
				slog.String("error", err.Error()),
			)
		}

		c.record.Downloaded = false
		c.record.LocalPath = ""
		evicted++

		m.logger.Debug("evicted cached image",
			slog.String("theme", c.theme),
			slog.String("filename", c.record.Filename),
		)
	}

	if evicted > 0 {
		m.saveLocked()
	}

	m.logger.Info("eviction pass complete",
		slog.Int("evicted", evicted),
		slog.Int("remaining", len(downloaded)-evicted),
	)

	return evicted
}
