package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wallsky/wallsky/internal/config"
	"github.com/wallsky/wallsky/internal/tracker"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon state, display bindings and per-theme cache statistics",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg := resolvedCfg

	// Daemon liveness.
	if pid, alive := daemonAlive(config.PIDFilePath()); alive {
		fmt.Printf("Daemon:   running (PID %d)\n", pid)
	} else {
		fmt.Println("Daemon:   not running")
	}

	// Pause state.
	paused, until := readPauseFile(config.PauseFilePath())
	switch {
	case paused && until.IsZero():
		fmt.Println("Rotation: paused")
	case paused:
		fmt.Printf("Rotation: paused until %s\n", formatTime(until))
	default:
		fmt.Printf("Rotation: every %s", cfg.Delay)

		if cfg.Random {
			fmt.Print(", random order")
		}

		fmt.Println()
	}

	// Display bindings.
	fmt.Println()

	for _, d := range cfg.Displays {
		binding := "theme " + d.Theme
		if d.Playlist != "" {
			binding = "playlist " + d.Playlist
		}

		suffix := ""
		if d.Disabled {
			suffix = " (disabled)"
		}

		fmt.Printf("Display %d: %s%s\n", d.ID, binding, suffix)
	}

	// Per-theme cache statistics from the index.
	trk, err := tracker.NewManager(config.IndexPath(), cfg.MaxCachedImages, cfg.PrefetchBatchSize, buildLogger())
	if err != nil {
		return err
	}

	themes := trk.Themes()
	if len(themes) == 0 {
		fmt.Println("\nNo themes known yet; run `wallsky themes --rescan`.")
		return nil
	}

	fmt.Println()

	headers := []string{"THEME", "IMAGES", "CACHED", "SHOWN", "CYCLE"}
	if !stdoutIsTerminal() {
		headers = nil
	}

	rows := make([][]string, 0, len(themes))
	for _, theme := range themes {
		s := trk.Stats(theme)
		rows = append(rows, []string{
			theme,
			strconv.Itoa(s.Total),
			strconv.Itoa(s.Downloaded),
			strconv.Itoa(s.Displayed),
			strconv.Itoa(s.Cycle),
		})
	}

	printTable(os.Stdout, headers, rows)

	return nil
}
