package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const (
	// DefaultAddr is the daemon address used when neither --addr nor
	// EMBEDSVC_ADDR is given.
	DefaultAddr = "http://127.0.0.1:8000"
	// AddrEnv overrides the default daemon address.
	AddrEnv = "EMBEDSVC_ADDR"
)

var (
	Version     = "0.1.0"
	BuildCommit = "unknown"
	BuildDate   = "unknown"

	jsonOutput bool
	daemonAddr string
	timeout    = defaultTimeout
)

var rootCmd = &cobra.Command{
	Use:   "embedsvc",
	Short: "embedsvc - client for the text embedding service",
	Long: `embedsvc talks to a running embedsvcd daemon.

It checks readiness, shows model status and turns text into embedding
vectors using the multilingual sentence-transformers model the daemon serves.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&daemonAddr, "addr", "", "Daemon address (default: $"+AddrEnv+" or "+DefaultAddr+")")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "HTTP request timeout")
}

// DaemonAddr returns the base URL of the daemon: the --addr flag, then
// EMBEDSVC_ADDR, then DefaultAddr. A missing scheme defaults to http.
func DaemonAddr() string {
	addr := daemonAddr
	if addr == "" {
		addr = os.Getenv(AddrEnv)
	}
	if addr == "" {
		addr = DefaultAddr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return strings.TrimSuffix(addr, "/")
}

func IsJSONOutput() bool {
	return jsonOutput
}

func newClient() *Client {
	return NewClient(DaemonAddr(), timeout)
}
