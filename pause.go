package main

import (
	"fmt"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wallsky/wallsky/internal/config"
)

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause [duration]",
		Short: "Pause wallpaper rotation",
		Long: `Pause rotation. An optional duration argument (e.g. "2h", "30m",
"1d") schedules automatic resume after the interval.

Without a duration, rotation stays paused until manually resumed.
If a daemon is running, it receives a SIGHUP to pick up the change.

Examples:
  wallsky pause
  wallsky pause 2h
  wallsky pause 1d`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPause,
	}
}

func runPause(_ *cobra.Command, args []string) error {
	var until time.Time

	if len(args) > 0 {
		duration, err := config.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", args[0], err)
		}

		until = time.Now().Add(duration)
	}

	if err := writePauseFile(config.PauseFilePath(), until); err != nil {
		return err
	}

	if until.IsZero() {
		statusf(flagQuiet, "Rotation paused\n")
	} else {
		statusf(flagQuiet, "Rotation paused until %s\n", until.Format(time.RFC3339))
	}

	notifyDaemon()

	return nil
}

// notifyDaemon attempts to SIGHUP a running daemon so it reloads the
// pause state. Non-fatal: without a daemon the state applies on the
// next start.
func notifyDaemon() {
	if err := signalDaemon(config.PIDFilePath(), syscall.SIGHUP); err != nil {
		statusf(flagQuiet, "Note: %v; the change takes effect on next daemon start\n", err)
		return
	}

	statusf(flagQuiet, "Notified running daemon\n")
}
