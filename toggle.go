package main

import (
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wallsky/wallsky/internal/config"
)

func newToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Toggle the running daemon between paused and running",
		Args:  cobra.NoArgs,
		RunE:  runToggle,
	}
}

func runToggle(_ *cobra.Command, _ []string) error {
	// The daemon owns the toggle: it flips its state on SIGUSR2 and
	// updates the pause file itself.
	if err := signalDaemon(config.PIDFilePath(), syscall.SIGUSR2); err != nil {
		return err
	}

	statusf(flagQuiet, "Toggled rotation state\n")

	return nil
}
