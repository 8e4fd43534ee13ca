package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/bot-sentry/internal/supervisor"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of a running supervisor",
	Long:  `Queries the /status endpoint of a running supervisor and displays the result.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "supervisor address (default from config listen_addr)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr := statusAddr
	if addr == "" {
		addr = currentSettings().ListenAddr
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/status")
	if err != nil {
		return fmt.Errorf("failed to reach supervisor at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("supervisor returned %s", resp.Status)
	}

	var status supervisor.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode status: %w", err)
	}

	if IsJSONOutput() {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(status)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")

	table.Append("State", string(status.State))
	table.Append("Started At", status.StartedAt.Format(time.RFC3339))
	table.Append("Uptime", time.Since(status.StartedAt).Round(time.Second).String())
	table.Append("Iterations", fmt.Sprintf("%d", status.Iterations))

	if status.WorkerPID > 0 {
		table.Append("Worker PID", fmt.Sprintf("%d", status.WorkerPID))
	}
	if status.LastRun != nil {
		table.Append("Last Exit Code", fmt.Sprintf("%d", status.LastRun.ExitCode))
		table.Append("Last Sync", string(status.LastRun.Sync))
		table.Append("Last Duration", fmt.Sprintf("%.1fs", status.LastRun.DurationSec))
	}

	table.Render()
	return nil
}
