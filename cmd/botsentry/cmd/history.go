package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/bot-sentry/pkg/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent worker runs",
	Long:  `Reads the run-history database and lists recent worker runs, newest first.`,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	settings := currentSettings()

	history, err := store.NewStore(store.Config{Type: "sqlite", Path: settings.DBPath})
	if err != nil {
		return fmt.Errorf("failed to open run history %s: %w", settings.DBPath, err)
	}
	defer history.Close()

	runs, err := history.ListRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if IsJSONOutput() {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Run #", "Started", "Duration", "PID", "Exit", "Sync")

	for _, run := range runs {
		syncCol := string(run.Sync)
		if run.SyncError != "" {
			syncCol = fmt.Sprintf("%s (%s)", run.Sync, run.SyncError)
		}
		table.Append(
			fmt.Sprintf("%d", run.ID),
			run.StartedAt.Local().Format(time.RFC3339),
			fmt.Sprintf("%.1fs", run.DurationSec),
			fmt.Sprintf("%d", run.PID),
			fmt.Sprintf("%d", run.ExitCode),
			syncCol,
		)
	}

	table.Render()
	return nil
}
