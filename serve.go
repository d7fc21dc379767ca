package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wallsky/wallsky/internal/catalog"
	"github.com/wallsky/wallsky/internal/config"
	"github.com/wallsky/wallsky/internal/display"
	"github.com/wallsky/wallsky/internal/fetch"
	"github.com/wallsky/wallsky/internal/journal"
	"github.com/wallsky/wallsky/internal/rotation"
	"github.com/wallsky/wallsky/internal/tracker"
)

// prefetchWorkers bounds concurrent image downloads during batch prefetch.
const prefetchWorkers = 4

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the rotation daemon in the foreground",
		Long: `Run the wallpaper rotation daemon. The daemon refreshes the theme
catalog when it is stale, prefetches upcoming images, rotates every
configured display on the configured interval, and trims the cache to
its configured size.

Signals:
  SIGHUP   reload config and pause state
  SIGUSR1  rotate now
  SIGUSR2  toggle pause
  SIGINT/SIGTERM  graceful shutdown (twice to force)`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := resolvedCfg
	logger := buildLogger()

	if len(cfg.Displays) == 0 {
		return fmt.Errorf("no displays configured; add a [display.N] section to %s", cfg.ConfigPath)
	}

	cleanup, err := writePIDFile(config.PIDFilePath())
	if err != nil {
		return err
	}
	defer cleanup()

	trk, err := tracker.NewManager(config.IndexPath(), cfg.MaxCachedImages, cfg.PrefetchBatchSize, logger)
	if err != nil {
		return err
	}

	jrnl, err := journal.Open(config.JournalPath(), logger)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	ctx := shutdownContext(cmd.Context(), logger)

	client := catalog.NewClient(cfg.ArchiveURL, cfg.RateLimit, cfg.RequestTimeout, cfg.UserAgent, logger)

	if trk.ShouldRescan(cfg.RescanInterval) {
		if err := rescanCatalog(ctx, client, trk); err != nil {
			// A dead archive must not keep cached images from rotating.
			logger.Warn("catalog refresh failed, continuing with known images",
				slog.String("error", err.Error()),
			)
		}
	}

	downloader := fetch.NewDownloader(cfg.CacheDir, cfg.RequestTimeout, cfg.UserAgent, logger)
	prefetcher := fetch.NewPrefetcher(downloader, trk, cfg.PrefetchBatchSize, prefetchWorkers, logger)

	sink, err := buildSink(cfg, logger)
	if err != nil {
		return err
	}

	eng, err := rotation.NewEngine(rotation.Config{
		Delay:       cfg.Delay,
		Random:      cfg.Random,
		StopTimeout: cfg.ShutdownTimeout,
		Tracker:     trk,
		Fetcher:     downloader,
		Sink:        sink,
		Journal:     jrnl,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	boundThemes, err := bindDisplays(eng, cfg.Displays, logger)
	if err != nil {
		return err
	}

	// Warm the cache for every bound theme before the first pass.
	for _, theme := range boundThemes {
		if _, err := prefetcher.PrefetchTheme(ctx, theme); err != nil {
			logger.Warn("prefetch failed for theme",
				slog.String("theme", theme),
				slog.String("error", err.Error()),
			)
		}
	}

	watcher := tracker.NewCacheWatcher(trk, cfg.CacheDir, logger)

	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Warn("cache watcher exited", slog.String("error", err.Error()))
		}
	}()

	if err := eng.Start(ctx); err != nil {
		return err
	}

	applyPauseState(eng, logger)

	// Kick off the first pass immediately instead of waiting a full delay.
	if err := eng.RotateNow(); err != nil {
		logger.Warn("initial rotation request failed", slog.String("error", err.Error()))
	}

	watchDaemonSignals(ctx, eng, logger)

	<-ctx.Done()

	return eng.Stop()
}

// rescanCatalog pulls the full archive listing and merges it into the
// tracker index.
func rescanCatalog(ctx context.Context, client *catalog.Client, trk *tracker.Manager) error {
	listings, err := client.Scan(ctx)
	if err != nil {
		return err
	}

	for theme, listing := range listings {
		stubs := make([]tracker.ImageStub, 0, len(listing.Images))
		for _, img := range listing.Images {
			stubs = append(stubs, tracker.ImageStub{Filename: img.Filename, URL: img.URL})
		}

		trk.UpdateCatalog(theme, listing.URL, stubs)
	}

	trk.MarkGlobalScan()

	return nil
}

// buildSink constructs the configured wallpaper sink. Without a sink
// command the daemon runs dry, logging what it would have applied.
func buildSink(cfg *config.Resolved, logger *slog.Logger) (rotation.Sink, error) {
	if strings.TrimSpace(cfg.SinkCommand) == "" {
		logger.Warn("no sink.command configured, running dry (wallpapers are selected but not applied)")
		return display.NewLogSink(logger), nil
	}

	sink, err := display.NewCommandSink(strings.Fields(cfg.SinkCommand), logger)
	if err != nil {
		return nil, err
	}

	return sink, nil
}

// bindDisplays wires every enabled display binding into the engine and
// returns the distinct themes that need prefetching.
func bindDisplays(eng *rotation.Engine, displays []config.ResolvedDisplay, logger *slog.Logger) ([]string, error) {
	themeSet := make(map[string]bool)

	for _, d := range displays {
		if d.Disabled {
			logger.Info("display disabled, skipping", slog.Int("display", d.ID))
			continue
		}

		if d.Playlist != "" {
			paths, err := loadPlaylist(d.Playlist)
			if err != nil {
				return nil, fmt.Errorf("display %d: %w", d.ID, err)
			}

			eng.SetPlaylist(d.ID, paths)
			logger.Info("display bound to playlist",
				slog.Int("display", d.ID),
				slog.String("dir", d.Playlist),
				slog.Int("images", len(paths)),
			)

			continue
		}

		eng.SetThemeBinding(d.ID, d.Theme)
		themeSet[d.Theme] = true
		logger.Info("display bound to theme",
			slog.Int("display", d.ID),
			slog.String("theme", d.Theme),
		)
	}

	themes := make([]string, 0, len(themeSet))
	for theme := range themeSet {
		themes = append(themes, theme)
	}

	sort.Strings(themes)

	return themes, nil
}

// loadPlaylist lists the image files of a playlist directory in name order.
func loadPlaylist(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading playlist directory %s: %w", dir, err)
	}

	var paths []string

	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}

		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("playlist directory %s contains no images", dir)
	}

	return paths, nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".bmp":
		return true
	default:
		return false
	}
}

// applyPauseState aligns the engine with the pause control file. A pause
// with a deadline schedules its own resume.
func applyPauseState(eng *rotation.Engine, logger *slog.Logger) {
	paused, until := readPauseFile(config.PauseFilePath())
	if !paused {
		if err := eng.Resume(); err != nil {
			logger.Warn("resume failed", slog.String("error", err.Error()))
		}

		return
	}

	if !until.IsZero() && time.Now().After(until) {
		// The pause expired while no daemon was running.
		if err := clearPauseFile(config.PauseFilePath()); err != nil {
			logger.Warn("clearing expired pause file failed", slog.String("error", err.Error()))
		}

		if err := eng.Resume(); err != nil {
			logger.Warn("resume failed", slog.String("error", err.Error()))
		}

		return
	}

	if err := eng.Pause(); err != nil {
		logger.Warn("pause failed", slog.String("error", err.Error()))
		return
	}

	if until.IsZero() {
		logger.Info("rotation paused until resumed")
		return
	}

	logger.Info("rotation paused", slog.String("until", until.Format(time.RFC3339)))

	time.AfterFunc(time.Until(until), func() {
		if err := clearPauseFile(config.PauseFilePath()); err != nil {
			logger.Warn("clearing pause file failed", slog.String("error", err.Error()))
		}

		if err := eng.Resume(); err != nil {
			logger.Warn("scheduled resume failed", slog.String("error", err.Error()))
		}
	})
}

// watchDaemonSignals reacts to the daemon's control signals until the
// context is canceled.
func watchDaemonSignals(ctx context.Context, eng *rotation.Engine, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2)

	go func() {
		defer signal.Stop(sigCh)

		for {
			select {
			case <-ctx.Done():
				return

			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					logger.Info("SIGHUP received, reloading pause state and config")
					reloadDaemonConfig(eng, logger)

				case syscall.SIGUSR1:
					logger.Info("SIGUSR1 received, rotating now")

					if err := eng.RotateNow(); err != nil {
						logger.Warn("manual rotation failed", slog.String("error", err.Error()))
					}

				case syscall.SIGUSR2:
					state, err := eng.Toggle()
					if err != nil {
						logger.Warn("toggle failed", slog.String("error", err.Error()))
						continue
					}

					// Keep the pause file in sync so status and restarts
					// agree with the live state.
					syncPauseFile(state, logger)
				}
			}
		}
	}()
}

// reloadDaemonConfig re-resolves the config file and applies the
// reloadable settings, then realigns the pause state.
func reloadDaemonConfig(eng *rotation.Engine, logger *slog.Logger) {
	resolved, err := config.Resolve(config.ReadEnvOverrides(), config.CLIOverrides{ConfigPath: flagConfigPath})
	if err != nil {
		logger.Warn("config reload failed, keeping current settings",
			slog.String("error", err.Error()),
		)
	} else {
		eng.SetDelay(resolved.Delay)
		eng.SetRandomMode(resolved.Random)
		resolvedCfg = resolved
	}

	applyPauseState(eng, logger)
}

func syncPauseFile(state rotation.State, logger *slog.Logger) {
	var err error

	if state == rotation.StatePaused {
		err = writePauseFile(config.PauseFilePath(), time.Time{})
	} else {
		err = clearPauseFile(config.PauseFilePath())
	}

	if err != nil {
		logger.Warn("updating pause file failed", slog.String("error", err.Error()))
	}

	logger.Info("rotation state toggled", slog.String("state", state.String()))
}
