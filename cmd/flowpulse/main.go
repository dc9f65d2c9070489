package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "flowpulse",
	Short: "Workflow health monitoring for automation engines",
	Long: `flowpulse polls a workflow automation engine's REST API, evaluates the
health of every active workflow from its recent execution history, and
serves the resulting reports over a JSON API, a WebSocket stream and
webhook notifications.

Commands:
  serve    Run the collector and the HTTP API
  check    Analyze workflows once and print the reports
  doctor   Verify the engine connection and the configuration`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
