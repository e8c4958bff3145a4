package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/embedsvc/embedsvc/internal/config"
)

// redacted replaces secrets in printed configuration.
const redacted = "********"

var configPath string

var configCmd = &cobra.Command{
	Use:   "config [get <key>]",
	Short: "Show the resolved daemon configuration",
	Long: `Resolve the configuration the daemon would start with from defaults, the
optional config file, .env and EMBEDSVC_* environment variables.

Without arguments, displays the full configuration.
Use 'get <key>' to view a single setting. Keys use dot notation
(e.g., server.port, model.backend). Tokens are never printed.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func init() {
	configCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return ErrConfigInvalid(err)
	}

	out := outputFor(cmd)
	if errs := config.Validate(cfg); errs.HasErrors() {
		out.Warn("%s", errs.Error())
	}
	redactConfig(cfg)

	if len(args) == 0 {
		return printValue(cmd, cfg)
	}

	if args[0] != "get" {
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
	if len(args) < 2 {
		return fmt.Errorf("get requires a key argument")
	}

	value, err := getValueByKey(cfg, args[1])
	if err != nil {
		return err
	}
	if IsJSONOutput() {
		return out.JSON(map[string]interface{}{"key": args[1], "value": value})
	}
	if _, nested := value.(map[string]interface{}); nested {
		return printValue(cmd, value)
	}
	out.Info("%v", value)
	return nil
}

func redactConfig(cfg *config.Config) {
	if cfg.Model.Token != "" {
		cfg.Model.Token = redacted
	}
}

func printValue(cmd *cobra.Command, value interface{}) error {
	if IsJSONOutput() {
		return outputFor(cmd).JSON(value)
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// getValueByKey walks the YAML form of cfg along a dotted key.
func getValueByKey(cfg *config.Config, key string) (interface{}, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var current interface{} = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unknown key: %s", key)
		}
		current, ok = m[part]
		if !ok {
			return nil, fmt.Errorf("unknown key: %s", key)
		}
	}
	return current, nil
}
