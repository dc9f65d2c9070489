package diagnostics

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/flowpulse/flowpulse/internal/analysis"
	"github.com/flowpulse/flowpulse/internal/config"
)

// Checker validates the engine connection and the loaded configuration.
type Checker struct {
	ping   func(context.Context) error
	getenv func(string) string
}

// NewChecker builds a checker around the given engine probe, usually the
// fetch client's Ping method.
func NewChecker(ping func(context.Context) error) *Checker {
	return &Checker{
		ping:   ping,
		getenv: os.Getenv,
	}
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(ping func(context.Context) error, getenv func(string) string) *Checker {
	return &Checker{
		ping:   ping,
		getenv: getenv,
	}
}

// Run executes all checks and returns a combined report.
func (c *Checker) Run(ctx context.Context, cfg *config.Config) Report {
	items := []Item{
		c.checkEngine(ctx),
		c.checkAPIKey(cfg.Engine),
		c.checkRules(cfg.RuleTable()),
		c.checkBaselines(cfg.Baselines),
		c.checkWebhooks(cfg.Notify.Webhooks),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == StatusFail {
			hasFailures = true
			break
		}
	}

	return Report{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkEngine verifies the workflow engine answers at all.
func (c *Checker) checkEngine(ctx context.Context) Item {
	item := Item{ID: "engine_reachable", Name: "Engine API"}

	if err := c.ping(ctx); err != nil {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Engine is not responding: %v", err)
		item.Hint = "Check engine.base_url, network reachability and that the engine is running."
		return item
	}

	item.Status = StatusPass
	item.Message = "Engine responded."
	return item
}

// checkAPIKey verifies the configured credential environment variable resolves.
func (c *Checker) checkAPIKey(eng config.EngineConfig) Item {
	item := Item{ID: "engine_api_key", Name: "Engine API key"}

	if eng.APIKeyEnv == "" {
		item.Status = StatusPass
		item.Message = "No API key configured; requests are sent unauthenticated."
		return item
	}
	if c.getenv(eng.APIKeyEnv) == "" {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Environment variable %s is empty.", eng.APIKeyEnv)
		item.Hint = "Export the engine API key, or clear engine.api_key_env for unauthenticated access."
		return item
	}

	item.Status = StatusPass
	item.Message = fmt.Sprintf("API key present in %s.", eng.APIKeyEnv)
	return item
}

// checkRules validates every rule in the effective recommendation table.
func (c *Checker) checkRules(rules []analysis.Rule) Item {
	item := Item{ID: "rule_table", Name: "Recommendation rules"}

	for _, r := range rules {
		if err := analysis.CheckCondition(r.Condition); err != nil {
			item.Status = StatusFail
			item.Message = fmt.Sprintf("Rule %q has a bad condition: %v", r.Name, err)
			item.Hint = `Conditions are "field op value" expressions, e.g. "timeout_pct > 10".`
			return item
		}
		if !r.Priority.Valid() {
			item.Status = StatusFail
			item.Message = fmt.Sprintf("Rule %q has unknown priority %q.", r.Name, r.Priority)
			item.Hint = "Use one of: critical, high, medium, low."
			return item
		}
	}

	item.Status = StatusPass
	item.Message = fmt.Sprintf("%d rules validated.", len(rules))
	return item
}

// checkBaselines verifies duration regression detection has a baseline to
// compare against.
func (c *Checker) checkBaselines(b config.BaselineConfig) Item {
	item := Item{ID: "baselines", Name: "Duration baselines"}

	if b.Default <= 0 && len(b.Workflows) == 0 {
		item.Status = StatusFail
		item.Message = "No duration baselines configured."
		item.Hint = "Set baselines.default or per-workflow entries; without them duration regressions go undetected."
		return item
	}

	item.Status = StatusPass
	item.Message = fmt.Sprintf("Default %s with %d workflow overrides.", b.Default, len(b.Workflows))
	return item
}

// checkWebhooks verifies every configured webhook URL resolves from the
// environment.
func (c *Checker) checkWebhooks(hooks []config.WebhookConfig) Item {
	item := Item{ID: "webhook_urls", Name: "Webhook URLs"}

	if len(hooks) == 0 {
		item.Status = StatusPass
		item.Message = "No webhooks configured; notifications are served over the API only."
		return item
	}
	for _, w := range hooks {
		if c.getenv(w.URLEnv) == "" {
			item.Status = StatusFail
			item.Message = fmt.Sprintf("Environment variable %s for the %s webhook is empty.", w.URLEnv, w.Type)
			item.Hint = "Export the webhook URL before starting the service."
			return item
		}
	}

	item.Status = StatusPass
	item.Message = fmt.Sprintf("%d webhook targets resolved.", len(hooks))
	return item
}
