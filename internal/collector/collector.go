// Package collector owns the poll loop: it periodically pulls workflow
// definitions and execution windows from the engine, rebuilds every
// workflow's health report, and hands the results to the report store and
// the notification engine.
package collector

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/flowpulse/flowpulse/internal/analysis"
	"github.com/flowpulse/flowpulse/internal/config"
	"github.com/flowpulse/flowpulse/internal/metrics"
	"github.com/flowpulse/flowpulse/internal/store"
	"github.com/flowpulse/flowpulse/internal/workflow"
)

// Fetcher is the engine access the collector needs. *fetch.Client satisfies
// it; tests inject fakes.
type Fetcher interface {
	ListWorkflows(ctx context.Context) ([]workflow.Definition, error)
	ListExecutions(ctx context.Context, workflowID string) ([]workflow.ExecutionRecord, error)
}

// Observer receives every freshly computed report. *notify.Engine satisfies it.
type Observer interface {
	Observe(*analysis.Report)
}

// Collector runs the collection cycle on a fixed interval.
type Collector struct {
	fetcher  Fetcher
	store    *store.Store
	observer Observer
	reg      *metrics.Registry
	interval time.Duration
	now      func() time.Time // injectable for tests

	// Analysis parameters, swappable at runtime via ApplyConfig.
	mu        sync.RWMutex
	policy    analysis.Policy
	rules     []analysis.Rule
	baselines config.BaselineConfig
}

// New creates a Collector wired to its collaborators. The poll interval is
// fixed for the lifetime of the process; analysis parameters may change via
// ApplyConfig.
func New(f Fetcher, st *store.Store, obs Observer, reg *metrics.Registry, cfg *config.Config) *Collector {
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Collector{
		fetcher:   f,
		store:     st,
		observer:  obs,
		reg:       reg,
		interval:  cfg.Poll.Interval,
		now:       time.Now,
		policy:    cfg.DetectorPolicy(),
		rules:     cfg.RuleTable(),
		baselines: cfg.Baselines,
	}
}

// ApplyConfig swaps the analysis parameters. Engine connection and poll
// interval changes still need a restart.
func (c *Collector) ApplyConfig(cfg *config.Config) {
	c.mu.Lock()
	c.policy = cfg.DetectorPolicy()
	c.rules = cfg.RuleTable()
	c.baselines = cfg.Baselines
	c.mu.Unlock()
	slog.Info("collector: analysis parameters applied",
		"rules", len(cfg.RuleTable()),
		"timeout_threshold", cfg.Policy.TimeoutRateThreshold,
		"duration_multiplier", cfg.Policy.DurationMultiplier,
	)
}

// Run executes an immediate first cycle and then one per interval until ctx
// is cancelled.
func (c *Collector) Run(ctx context.Context) {
	c.cycle(ctx)

	t := time.NewTicker(c.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.cycle(ctx)
		}
	}
}

// cycle refreshes every active workflow's report. Per-workflow failures are
// logged and counted; they never abort the rest of the cycle.
func (c *Collector) cycle(ctx context.Context) {
	defs, err := c.fetcher.ListWorkflows(ctx)
	if err != nil {
		slog.Error("collector: listing workflows failed", "err", err)
		c.reg.Inc(metrics.ReportFailuresTotal)
		return
	}

	c.mu.RLock()
	pol, rules, baselines := c.policy, c.rules, c.baselines
	c.mu.RUnlock()

	observed := 0
	for _, def := range defs {
		if !def.Active {
			continue
		}
		observed++

		records, err := c.fetcher.ListExecutions(ctx, def.ID)
		if err != nil {
			slog.Error("collector: listing executions failed",
				"workflow", def.ID, "err", err)
			c.reg.Inc(metrics.ReportFailuresTotal)
			continue
		}

		rep, err := analysis.BuildReport(analysis.ReportInput{
			Definition: def,
			Baseline:   baselines.For(def.ID),
			Records:    records,
			At:         c.now(),
		}, pol, rules)

		switch {
		case errors.Is(err, analysis.ErrNoRecords):
			// Nothing ran yet. No report entry; the API answers 404 and any
			// previous report ages out via the store TTL.
			slog.Debug("collector: no executions, skipping", "workflow", def.ID)
			c.reg.Inc(metrics.WorkflowsSkippedTotal)
			continue
		case err != nil:
			slog.Error("collector: report failed", "workflow", def.ID, "err", err)
			c.reg.Inc(metrics.ReportFailuresTotal)
			continue
		}

		c.store.Put(rep)
		if c.observer != nil {
			c.observer.Observe(rep)
		}

		c.reg.Inc(metrics.ReportsComputedTotal)
		c.reg.Add(metrics.IssuesDetectedTotal, int64(len(rep.Issues)))
		c.reg.Add(metrics.RecommendationsTotal, int64(len(rep.Recommendations)))

		slog.Debug("collector: report computed",
			"workflow", def.ID,
			"status", rep.Health.Status,
			"rate", rep.Health.CompletionRate,
			"issues", len(rep.Issues),
		)
	}

	c.reg.Set(metrics.WorkflowsObserved, int64(observed))
	c.reg.Inc(metrics.CollectCyclesTotal)
	slog.Info("collector: cycle complete",
		"workflows", observed, "stored", c.store.Count())
}
