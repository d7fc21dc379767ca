// Package rotation runs the per-display wallpaper rotation loop. The
// engine owns the timer, the display bindings and the pause state; the
// tracker, fetcher, sink and journal are injected collaborators.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wallsky/wallsky/internal/journal"
	"github.com/wallsky/wallsky/internal/tracker"
)

// pausePollInterval is how often the loop re-checks the pause flag
// while paused.
const pausePollInterval = 1 * time.Second

// ErrNotRunning is returned by operations that require a started engine.
var ErrNotRunning = errors.New("rotation: engine is not running")

// State is the engine lifecycle state.
type State int

const (
	StateStopped State = iota
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Tracker is the engine's view of the availability tracker.
type Tracker interface {
	Candidates(theme string, exclude map[string]bool) []tracker.ImageRecord
	MarkDownloaded(theme, url, localPath string)
	MarkDisplayed(theme, pathOrFilename string)
	ResetCycle(theme string)
	EvictIfOverCapacity() int
}

// Fetcher downloads one image into the cache and returns its local
// path. Must be idempotent: fetching an already-cached image returns
// the existing path.
type Fetcher interface {
	Fetch(ctx context.Context, theme, filename, url string) (string, error)
}

// Sink applies an image file as the wallpaper of one display.
type Sink interface {
	Apply(ctx context.Context, displayID int, localPath string) error
}

// Appender receives journal entries for applied wallpapers. Append
// failures are logged, never fatal.
type Appender interface {
	Append(ctx context.Context, e journal.Entry) error
}

// Config carries the engine's collaborators and initial settings.
type Config struct {
	Delay       time.Duration
	Random      bool
	StopTimeout time.Duration

	Tracker Tracker
	Fetcher Fetcher
	Sink    Sink
	Journal Appender // optional
	Logger  *slog.Logger
}

// binding is the per-display rotation state. A display is bound to
// either a theme or a flat playlist of image paths, never both.
type binding struct {
	displayID int
	theme     string
	playlist  []string
	cursor    int

	currentFilename string
	currentTheme    string
}

// Engine is the rotation state machine. All shared state sits behind
// one mutex; fetches and sink calls happen outside it.
type Engine struct {
	mu       sync.Mutex
	state    State
	delay    time.Duration
	random   bool
	sink     Sink
	bindings map[int]*binding

	trk         Tracker
	fetcher     Fetcher
	jrnl        Appender
	logger      *slog.Logger
	failures    *failureTracker
	stopTimeout time.Duration

	stopCh   chan struct{}
	doneCh   chan struct{}
	rotateCh chan struct{}

	newPassID func() string
	pickFunc  func(n int) int // random selection, injectable for tests
}

// NewEngine creates a stopped engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Tracker == nil || cfg.Fetcher == nil || cfg.Sink == nil {
		return nil, errors.New("rotation: tracker, fetcher and sink are required")
	}

	if cfg.Delay <= 0 {
		return nil, fmt.Errorf("rotation: invalid delay %v", cfg.Delay)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}

	return &Engine{
		state:       StateStopped,
		delay:       cfg.Delay,
		random:      cfg.Random,
		sink:        cfg.Sink,
		bindings:    make(map[int]*binding),
		trk:         cfg.Tracker,
		fetcher:     cfg.Fetcher,
		jrnl:        cfg.Journal,
		logger:      logger,
		failures:    newFailureTracker(logger),
		stopTimeout: stopTimeout,
		newPassID:   uuid.NewString,
		pickFunc:    rand.Intn,
	}, nil
}

// SetThemeBinding binds a display to a theme, replacing any existing
// binding.
func (e *Engine) SetThemeBinding(displayID int, theme string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.bindings[displayID] = &binding{displayID: displayID, theme: theme}
}

// SetPlaylist binds a display to a flat list of image paths, replacing
// any existing binding.
func (e *Engine) SetPlaylist(displayID int, paths []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	list := make([]string, len(paths))
	copy(list, paths)

	e.bindings[displayID] = &binding{displayID: displayID, playlist: list}
}

// SetDelay changes the rotation interval. Takes effect at the next
// timer reset.
func (e *Engine) SetDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if d > 0 {
		e.delay = d
	}
}

// SetRandomMode switches between random and round-robin selection.
func (e *Engine) SetRandomMode(random bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.random = random
}

// SetSink replaces the wallpaper sink.
func (e *Engine) SetSink(sink Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sink != nil {
		e.sink = sink
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// IsActive reports whether the rotation loop is running (paused counts
// as active).
func (e *Engine) IsActive() bool {
	s := e.State()
	return s == StateRunning || s == StatePaused
}

// Start launches the rotation loop. The first pass runs after one full
// delay; call RotateNow for an immediate pass.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()

	if e.state != StateStopped {
		e.mu.Unlock()
		return errors.New("rotation: engine already started")
	}

	e.state = StateRunning
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.rotateCh = make(chan struct{}, 1)
	delay := e.delay
	e.mu.Unlock()

	e.logger.Info("rotation engine started",
		slog.Duration("delay", delay),
		slog.Int("displays", e.displayCount()),
	)

	go e.loop(ctx)

	return nil
}

// Stop halts the loop and waits for the in-flight pass to finish,
// abandoning the goroutine after the stop timeout.
func (e *Engine) Stop() error {
	e.mu.Lock()

	if e.state == StateStopped {
		e.mu.Unlock()
		return nil
	}

	stopCh := e.stopCh
	doneCh := e.doneCh
	e.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
	case <-time.After(e.stopTimeout):
		e.logger.Warn("rotation loop did not stop in time, abandoning",
			slog.Duration("timeout", e.stopTimeout),
		)
	}

	e.mu.Lock()
	e.state = StateStopped
	e.mu.Unlock()

	e.logger.Info("rotation engine stopped")

	return nil
}

// Pause suspends rotation without stopping the loop.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateStopped {
		return ErrNotRunning
	}

	if e.state == StateRunning {
		e.state = StatePaused
		e.logger.Info("rotation paused")
	}

	return nil
}

// Resume continues rotation after a pause.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateStopped {
		return ErrNotRunning
	}

	if e.state == StatePaused {
		e.state = StateRunning
		e.logger.Info("rotation resumed")
	}

	return nil
}

// Toggle flips between running and paused and returns the new state.
func (e *Engine) Toggle() (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateRunning:
		e.state = StatePaused
		e.logger.Info("rotation paused")
	case StatePaused:
		e.state = StateRunning
		e.logger.Info("rotation resumed")
	default:
		return StateStopped, ErrNotRunning
	}

	return e.state, nil
}

// RotateNow requests an immediate rotation pass without resetting the
// timer phase. Works while paused; a pass already requested is not
// queued twice.
func (e *Engine) RotateNow() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateStopped {
		return ErrNotRunning
	}

	select {
	case e.rotateCh <- struct{}{}:
	default:
	}

	return nil
}

// PlaylistInfo describes a playlist binding's progress.
type PlaylistInfo struct {
	Total     int
	Cursor    int
	Remaining int
}

// PlaylistInfo returns cursor progress for a playlist-bound display.
func (e *Engine) PlaylistInfo(displayID int) (PlaylistInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.bindings[displayID]
	if !ok {
		return PlaylistInfo{}, fmt.Errorf("rotation: display %d has no binding", displayID)
	}

	if b.playlist == nil {
		return PlaylistInfo{}, fmt.Errorf("rotation: display %d is theme-bound", displayID)
	}

	total := len(b.playlist)
	cursor := 0

	if total > 0 {
		cursor = b.cursor % total
	}

	return PlaylistInfo{Total: total, Cursor: cursor, Remaining: total - cursor}, nil
}

// loop is the single background goroutine driving timed passes.
func (e *Engine) loop(ctx context.Context) {
	defer close(e.doneCh)

	timer := time.NewTimer(e.currentDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-e.stopCh:
			return

		case <-e.rotateCh:
			// Manual rotation runs even while paused and does not
			// touch the timer phase.
			e.runPass(ctx)

		case <-timer.C:
			if e.State() == StatePaused {
				timer.Reset(pausePollInterval)
				continue
			}

			e.runPass(ctx)
			timer.Reset(e.currentDelay())
		}
	}
}

func (e *Engine) currentDelay() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.delay
}

func (e *Engine) displayCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.bindings)
}

// sortedDisplayIDs returns binding keys in ascending order. Passes
// always walk displays in this order so exclusion behavior is
// deterministic.
func (e *Engine) sortedDisplayIDs() []int {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]int, 0, len(e.bindings))
	for id := range e.bindings {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	return ids
}
