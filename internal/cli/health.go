package cli

import (
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the daemon is up and its model is ready",
	Long: `Query GET /health on the daemon.

The daemon answers even while its model is not loaded; "ready" tells whether
embedding requests can be served without first constructing the model.

Examples:
  embedsvc health
  embedsvc health --json`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	health, err := newClient().Health(cmd.Context())
	if err != nil {
		return err
	}

	out := outputFor(cmd)
	if IsJSONOutput() {
		return out.JSON(health)
	}

	out.Info("Status: %s", health.Status)
	out.Info("Model:  %s", health.Model)
	out.Info("Ready:  %s", yesNo(health.Ready))
	return nil
}
