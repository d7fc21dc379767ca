package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wallsky/wallsky/internal/config"
	"github.com/wallsky/wallsky/internal/journal"
)

// defaultHistoryCount bounds history output when -n is not given.
const defaultHistoryCount = 20

func newHistoryCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently applied wallpapers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, count)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", defaultHistoryCount, "number of entries to show")

	return cmd
}

func runHistory(cmd *cobra.Command, count int) error {
	if count <= 0 {
		return fmt.Errorf("count must be positive, got %d", count)
	}

	jrnl, err := journal.Open(config.JournalPath(), buildLogger())
	if err != nil {
		return err
	}
	defer jrnl.Close()

	entries, err := jrnl.Recent(cmd.Context(), count)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No rotation history yet.")
		return nil
	}

	headers := []string{"APPLIED", "DISPLAY", "THEME", "IMAGE"}
	if !stdoutIsTerminal() {
		headers = nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			formatTime(e.AppliedAt.Local()),
			strconv.Itoa(e.DisplayID),
			e.Theme,
			e.Filename,
		})
	}

	printTable(os.Stdout, headers, rows)

	return nil
}
