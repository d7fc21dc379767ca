package tracker

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestEvict_UnderCapacityIsNoop(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := newTestManager(t, 5, 10)
	m.UpdateCatalog("Earth", "https://a.example/earth/", earthImages(2))

	for _, stub := range earthImages(2) {
		m.MarkDownloaded("Earth", stub.URL, writeCacheFile(t, dir, stub.Filename))
	}

	if got := m.EvictIfOverCapacity(); got != 0 {
		t.Fatalf("evicted = %d, want 0", got)
	}
}

func TestEvict_NeverTouchesUndisplayed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := newTestManager(t, 1, 10)
	m.UpdateCatalog("Earth", "https://a.example/earth/", earthImages(3))

	// Three downloaded, none displayed: over capacity but nothing evictable.
	for _, stub := range earthImages(3) {
		m.MarkDownloaded("Earth", stub.URL, writeCacheFile(t, dir, stub.Filename))
	}

	if got := m.EvictIfOverCapacity(); got != 0 {
		t.Fatalf("evicted = %d, want 0 (undisplayed records are protected)", got)
	}

	if got := m.Stats("Earth").Downloaded; got != 3 {
		t.Fatalf("downloaded = %d, want 3", got)
	}
}

func TestEvict_OldestShownFirstAcrossThemes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := newTestManager(t, 1, 10)

	older := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	m.UpdateCatalog("Earth", "https://a.example/earth/",
		[]ImageStub{{Filename: "e.jpg", URL: "https://a.example/earth/e.jpg"}})
	m.UpdateCatalog("Mars", "https://a.example/mars/",
		[]ImageStub{{Filename: "m.jpg", URL: "https://a.example/mars/m.jpg"}})

	earthPath := writeCacheFile(t, dir, "e.jpg")
	marsPath := writeCacheFile(t, dir, "m.jpg")
	m.MarkDownloaded("Earth", "https://a.example/earth/e.jpg", earthPath)
	m.MarkDownloaded("Mars", "https://a.example/mars/m.jpg", marsPath)

	m.nowFunc = func() time.Time { return older }
	m.MarkDisplayed("Earth", "e.jpg")
	m.nowFunc = func() time.Time { return newer }
	m.MarkDisplayed("Mars", "m.jpg")

	if got := m.EvictIfOverCapacity(); got != 1 {
		t.Fatalf("evicted = %d, want 1", got)
	}

	// The older Earth image goes; the newer Mars image stays.
	if _, err := os.Stat(earthPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("earth file should be deleted, stat err = %v", err)
	}

	if _, err := os.Stat(marsPath); err != nil {
		t.Fatalf("mars file should survive, stat err = %v", err)
	}

	total := m.Stats("Earth").Downloaded + m.Stats("Mars").Downloaded
	if total != 1 {
		t.Fatalf("total downloaded after eviction = %d, want 1", total)
	}
}

func TestEvict_CapacityBoundHoldsAfterPass(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := newTestManager(t, 2, 10)
	m.UpdateCatalog("Earth", "https://a.example/earth/", earthImages(5))

	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, stub := range earthImages(5) {
		m.MarkDownloaded("Earth", stub.URL, writeCacheFile(t, dir, stub.Filename))

		shown := base.Add(time.Duration(i) * time.Minute)
		m.nowFunc = func() time.Time { return shown }
		m.MarkDisplayed("Earth", stub.Filename)
	}

	if got := m.EvictIfOverCapacity(); got != 3 {
		t.Fatalf("evicted = %d, want 3", got)
	}

	if got := m.Stats("Earth").Downloaded; got != 2 {
		t.Fatalf("downloaded after eviction = %d, want 2 (capacity bound)", got)
	}
}

func TestEvict_UnlinkFailureStillAdvancesState(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := newTestManager(t, 1, 10)
	m.UpdateCatalog("Earth", "https://a.example/earth/", earthImages(2))

	for _, stub := range earthImages(2) {
		m.MarkDownloaded("Earth", stub.URL, writeCacheFile(t, dir, stub.Filename))
		m.MarkDisplayed("Earth", stub.Filename)
	}

	m.removeFunc = func(string) error { return errors.New("permission denied") }

	if got := m.EvictIfOverCapacity(); got != 1 {
		t.Fatalf("evicted = %d, want 1 despite unlink failure", got)
	}

	// The record must still be reset so the capacity bound holds.
	if got := m.Stats("Earth").Downloaded; got != 1 {
		t.Fatalf("downloaded = %d, want 1", got)
	}
}
