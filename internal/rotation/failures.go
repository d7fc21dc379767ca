package rotation

import (
	"log/slog"
	"sync"
	"time"
)

// Failure suppression constants for download retries.
const (
	failureThreshold = 3                // skip after this many failures
	failureCooldown  = 30 * time.Minute // forget failures older than this
)

// failureRecord tracks failures for a single source URL.
type failureRecord struct {
	count   int
	lastErr string
	lastAt  time.Time
}

// failureTracker suppresses URLs that fail repeatedly, so one dead link
// cannot stall rotation on a small theme. Thread-safe. URLs that fail
// >= failureThreshold times within failureCooldown are skipped with a
// Warn log. Success clears the record.
type failureTracker struct {
	mu      sync.Mutex
	records map[string]*failureRecord
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for testing
}

func newFailureTracker(logger *slog.Logger) *failureTracker {
	return &failureTracker{
		records: make(map[string]*failureRecord),
		logger:  logger,
		nowFunc: time.Now,
	}
}

// shouldSkip returns true if the URL has failed enough times within the
// cooldown window that it should be suppressed.
func (ft *failureTracker) shouldSkip(url string) bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	rec, ok := ft.records[url]
	if !ok {
		return false
	}

	// Forget stale failures.
	if ft.nowFunc().Sub(rec.lastAt) > failureCooldown {
		delete(ft.records, url)
		return false
	}

	return rec.count >= failureThreshold
}

// recordFailure increments the failure counter for a URL.
func (ft *failureTracker) recordFailure(url, errMsg string) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	rec, ok := ft.records[url]
	if !ok {
		rec = &failureRecord{}
		ft.records[url] = rec
	}

	// Reset if the previous failure is older than the cooldown.
	if ft.nowFunc().Sub(rec.lastAt) > failureCooldown {
		rec.count = 0
	}

	rec.count++
	rec.lastErr = errMsg
	rec.lastAt = ft.nowFunc()

	if rec.count == failureThreshold {
		ft.logger.Warn("url suppressed after repeated failures",
			slog.String("url", url),
			slog.Int("failures", rec.count),
			slog.String("last_error", errMsg),
			slog.Duration("cooldown", failureCooldown),
		)
	}
}

// recordSuccess clears the failure record for a URL.
func (ft *failureTracker) recordSuccess(url string) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	delete(ft.records, url)
}
