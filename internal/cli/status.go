package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and model status",
	Long: `Display the current status of the embedsvc daemon and its model.

Shows information about:
  - Daemon process and uptime
  - Backend, readiness and initialization attempts
  - The last initialization error, if any
  - Embedding cache statistics

Examples:
  embedsvc status
  embedsvc status --json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	status, err := newClient().Status(cmd.Context())
	if err != nil {
		return err
	}

	out := outputFor(cmd)
	if IsJSONOutput() {
		return out.JSON(status)
	}

	out.Heading("embedsvc Status")

	var daemonRows [][2]string
	if d := status.Daemon; d != nil {
		daemonRows = [][2]string{
			{"PID", strconv.Itoa(d.PID)},
			{"Version", d.Version},
			{"Uptime", formatDuration(d.UptimeSeconds)},
		}
	}
	out.Section("Daemon", daemonRows)
	out.Info("")

	var modelRows [][2]string
	if m := status.Model; m != nil {
		modelRows = [][2]string{
			{"Backend", m.Backend},
			{"Model", m.Model},
			{"Ready", yesNo(m.Ready)},
			{"Init attempts", strconv.Itoa(m.InitAttempts)},
		}
		if m.Dimensions > 0 {
			modelRows = append(modelRows, [2]string{"Dimensions", strconv.Itoa(m.Dimensions)})
		}
		if !m.LastInitAt.IsZero() {
			modelRows = append(modelRows, [2]string{"Last init", m.LastInitAt.Format(time.RFC3339)})
		}
		if m.InitError != "" {
			modelRows = append(modelRows, [2]string{"Init error", m.InitError})
		}
	}
	out.Section("Model", modelRows)

	if status.Model != nil && status.Model.Cache != nil {
		c := status.Model.Cache
		out.Info("")
		out.Section("Cache", [][2]string{
			{"Entries", strconv.Itoa(c.Size)},
			{"Hits", strconv.FormatInt(c.Hits, 10)},
			{"Misses", strconv.FormatInt(c.Misses, 10)},
		})
	}

	return nil
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", seconds)
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
