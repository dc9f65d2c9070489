package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowpulse/flowpulse/internal/analysis"
	"github.com/flowpulse/flowpulse/internal/config"
	"github.com/flowpulse/flowpulse/internal/fetch"
	"github.com/flowpulse/flowpulse/internal/metrics"
)

var checkWorkflowID string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Analyze workflows once and print the reports",
	Long: `Fetch the current execution window for every active workflow (or a single
one with --workflow), run the health analysis and print the reports as
indented JSON.

Examples:
  flowpulse check
  flowpulse check --workflow wf-billing`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkWorkflowID, "workflow", "", "Only check this workflow ID")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client := fetch.NewClient(cfg.Engine, metrics.NewRegistry())

	defs, err := client.ListWorkflows(ctx)
	if err != nil {
		return fmt.Errorf("list workflows: %w", err)
	}

	pol := cfg.DetectorPolicy()
	rules := cfg.RuleTable()

	reports := make([]*analysis.Report, 0, len(defs))
	for _, def := range defs {
		if checkWorkflowID != "" && def.ID != checkWorkflowID {
			continue
		}
		// Inactive workflows are skipped unless asked for by ID.
		if checkWorkflowID == "" && !def.Active {
			continue
		}

		records, err := client.ListExecutions(ctx, def.ID)
		if err != nil {
			return fmt.Errorf("list executions for %s: %w", def.ID, err)
		}

		rep, err := analysis.BuildReport(analysis.ReportInput{
			Definition: def,
			Baseline:   cfg.Baselines.For(def.ID),
			Records:    records,
			At:         time.Now().UTC(),
		}, pol, rules)
		if err != nil {
			if errors.Is(err, analysis.ErrNoRecords) {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s (%s): no execution records\n", def.Name, def.ID)
				continue
			}
			return fmt.Errorf("analyze %s: %w", def.ID, err)
		}
		reports = append(reports, rep)
	}

	if checkWorkflowID != "" && len(reports) == 0 {
		return fmt.Errorf("workflow %s not found or has no records", checkWorkflowID)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}
