package main

import (
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wallsky/wallsky/internal/config"
)

func newRotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Trigger an immediate rotation pass on the running daemon",
		Args:  cobra.NoArgs,
		RunE:  runRotate,
	}
}

func runRotate(_ *cobra.Command, _ []string) error {
	if err := signalDaemon(config.PIDFilePath(), syscall.SIGUSR1); err != nil {
		return err
	}

	statusf(flagQuiet, "Rotation triggered\n")

	return nil
}
