package main

import (
	"github.com/spf13/cobra"

	"github.com/wallsky/wallsky/internal/config"
)

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume wallpaper rotation",
		Args:  cobra.NoArgs,
		RunE:  runResume,
	}
}

func runResume(_ *cobra.Command, _ []string) error {
	if err := clearPauseFile(config.PauseFilePath()); err != nil {
		return err
	}

	statusf(flagQuiet, "Rotation resumed\n")

	notifyDaemon()

	return nil
}
