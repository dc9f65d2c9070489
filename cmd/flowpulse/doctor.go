package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowpulse/flowpulse/internal/config"
	"github.com/flowpulse/flowpulse/internal/diagnostics"
	"github.com/flowpulse/flowpulse/internal/fetch"
	"github.com/flowpulse/flowpulse/internal/metrics"
)

var doctorJSON bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verify the engine connection and the configuration",
	Long: `Run the startup checks: engine reachability, API key presence, rule table
validity, duration baselines and webhook URLs. Exits non-zero when any
check fails.

Examples:
  flowpulse doctor
  flowpulse doctor --json`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output results as JSON")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	client := fetch.NewClient(cfg.Engine, metrics.NewRegistry())
	checker := diagnostics.NewChecker(client.Ping)
	report := checker.Run(cmd.Context(), cfg)

	w := cmd.OutOrStdout()
	if doctorJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal doctor report: %w", err)
		}
		fmt.Fprintln(w, string(data))
	} else {
		renderDoctorTable(w, report)
	}

	if report.HasFailures {
		return fmt.Errorf("doctor failed: one or more checks did not pass")
	}
	return nil
}

// statusIcon returns the display icon for a check status.
func statusIcon(s diagnostics.Status) string {
	if s == diagnostics.StatusPass {
		return "✓"
	}
	return "✗"
}

// renderDoctorTable writes the formatted check results.
func renderDoctorTable(w io.Writer, report diagnostics.Report) {
	maxName := 0
	for _, item := range report.Items {
		if len(item.Name) > maxName {
			maxName = len(item.Name)
		}
	}

	passes := 0
	for _, item := range report.Items {
		padding := strings.Repeat(" ", maxName-len(item.Name))
		fmt.Fprintf(w, "%s %s%s  %s\n", statusIcon(item.Status), item.Name, padding, item.Message)
		if item.Status == diagnostics.StatusFail && item.Hint != "" {
			fmt.Fprintf(w, "  hint: %s\n", item.Hint)
		}
		if item.Status == diagnostics.StatusPass {
			passes++
		}
	}

	fmt.Fprintf(w, "\n%d/%d checks passed\n", passes, len(report.Items))
}
