package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wallsky/wallsky/internal/catalog"
	"github.com/wallsky/wallsky/internal/config"
	"github.com/wallsky/wallsky/internal/tracker"
)

func newThemesCmd() *cobra.Command {
	var rescan bool

	cmd := &cobra.Command{
		Use:   "themes",
		Short: "List known themes and their availability",
		Long: `List every theme in the local index with image counts.

With --rescan, the remote archive is scanned first and merged into the
index; new themes and images appear, existing download and display
state is preserved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runThemes(cmd, rescan)
		},
	}

	cmd.Flags().BoolVar(&rescan, "rescan", false, "scan the remote archive before listing")

	return cmd
}

func runThemes(cmd *cobra.Command, rescan bool) error {
	cfg := resolvedCfg
	logger := buildLogger()

	trk, err := tracker.NewManager(config.IndexPath(), cfg.MaxCachedImages, cfg.PrefetchBatchSize, logger)
	if err != nil {
		return err
	}

	if rescan {
		statusf(flagQuiet, "Scanning %s ...\n", cfg.ArchiveURL)

		client := catalog.NewClient(cfg.ArchiveURL, cfg.RateLimit, cfg.RequestTimeout, cfg.UserAgent, logger)

		if err := rescanCatalog(cmd.Context(), client, trk); err != nil {
			return err
		}
	}

	themes := trk.Themes()
	if len(themes) == 0 {
		fmt.Println("No themes known yet; run `wallsky themes --rescan`.")
		return nil
	}

	headers := []string{"THEME", "IMAGES", "CACHED", "REMAINING"}
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
			strconv.Itoa(s.Remaining),
		})
	}

	printTable(os.Stdout, headers, rows)

	return nil
}
