package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flowpulse/flowpulse/internal/analysis"
	"github.com/flowpulse/flowpulse/internal/workflow"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultEngineTimeout  = 10 * time.Second
	DefaultExecutionLimit = 100
	DefaultDefinitionTTL  = time.Hour
	DefaultExecutionTTL   = 5 * time.Minute
	DefaultHTTPPort       = 8080
	DefaultStreamInterval = 30 * time.Second
	DefaultReportTTL      = 2 * time.Minute
	DefaultPollInterval   = time.Minute
	DefaultBaseline       = 2 * time.Minute
	DefaultCooldown       = 15 * time.Minute
	DefaultAPIKeyHeader   = "X-API-Key"
)

// Config is the top-level configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Engine    EngineConfig   `yaml:"engine"`
	Server    ServerConfig   `yaml:"server"`
	Poll      PollConfig     `yaml:"poll"`
	Policy    PolicyConfig   `yaml:"policy"`
	Baselines BaselineConfig `yaml:"baselines"`
	Rules     []RuleConfig   `yaml:"rules"`
	Notify    NotifyConfig   `yaml:"notify"`
}

// EngineConfig holds the connection settings for the workflow engine API.
type EngineConfig struct {
	// BaseURL is the root URL of the engine's REST API, without a trailing
	// slash, e.g. "https://engine.internal:5678".
	BaseURL string `yaml:"base_url"`

	// APIKeyEnv is the name of the environment variable that holds the
	// engine API key. Empty means unauthenticated requests.
	APIKeyEnv string `yaml:"api_key_env"`

	// APIKeyHeader is the HTTP header the key is sent in.
	APIKeyHeader string `yaml:"api_key_header"`

	// Timeout bounds each engine API request.
	Timeout time.Duration `yaml:"timeout"`

	// ExecutionLimit is how many recent executions are requested per workflow.
	ExecutionLimit int `yaml:"execution_limit"`

	// DefinitionTTL is how long the fetched workflow list is served from
	// cache before the engine is asked again.
	DefinitionTTL time.Duration `yaml:"definition_ttl"`

	// ExecutionTTL is how long a workflow's execution window is served from
	// cache before the engine is asked again.
	ExecutionTTL time.Duration `yaml:"execution_ttl"`
}

// APIKey returns the engine API key resolved from the environment.
// Returns empty string if APIKeyEnv is unset or the variable is not found.
func (e EngineConfig) APIKey() string {
	if e.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(e.APIKeyEnv)
}

// ServerConfig holds the settings of our own HTTP surface.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on.
	HTTPPort int `yaml:"http_port"`

	// StreamInterval is how often the WebSocket hub pushes a fleet snapshot.
	StreamInterval time.Duration `yaml:"stream_interval"`

	// ReportTTL is how long a computed report stays servable before it is
	// considered stale. Should comfortably exceed the poll interval.
	ReportTTL time.Duration `yaml:"report_ttl"`
}

// PollConfig controls the collection loop.
type PollConfig struct {
	// Interval is how often the collector re-reads the engine and rebuilds
	// all reports.
	Interval time.Duration `yaml:"interval"`
}

// PolicyConfig tunes the issue detector thresholds.
type PolicyConfig struct {
	// TimeoutRateThreshold is the timeout fraction above which a timeout
	// issue is raised, e.g. 0.10 for 10%.
	TimeoutRateThreshold float64 `yaml:"timeout_rate_threshold"`

	// DurationMultiplier is the baseline multiple above which a duration
	// regression is raised.
	DurationMultiplier float64 `yaml:"duration_multiplier"`
}

// BaselineConfig maps workflows to their expected execution duration.
type BaselineConfig struct {
	// Default applies to every workflow without an explicit entry.
	// Zero disables the duration regression check for those workflows.
	Default time.Duration `yaml:"default"`

	// Workflows maps workflow IDs to expected durations.
	Workflows map[string]time.Duration `yaml:"workflows"`
}

// For returns the baseline for the given workflow ID, falling back to the
// default.
func (b BaselineConfig) For(id string) workflow.Baseline {
	if d, ok := b.Workflows[id]; ok {
		return workflow.Baseline{DurationSeconds: d.Seconds()}
	}
	return workflow.Baseline{DurationSeconds: b.Default.Seconds()}
}

// RuleConfig defines one recommendation rule.
type RuleConfig struct {
	// Name is the human-readable rule identifier.
	Name string `yaml:"name"`

	// Condition is an expression like "timeout_pct > 10" or
	// "status == critical".
	Condition string `yaml:"condition"`

	// Priority is one of: critical | high | medium | low.
	Priority string `yaml:"priority"`

	// Action is the suggested operator step.
	Action string `yaml:"action"`

	// Impact states what following the action is expected to change.
	Impact string `yaml:"impact"`
}

// NotifyConfig holds notification behaviour and webhook targets.
type NotifyConfig struct {
	// Cooldown suppresses repeat notifications for a workflow issue for
	// this duration after one fires.
	Cooldown time.Duration `yaml:"cooldown"`

	// Webhooks is the list of delivery targets.
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// DetectorPolicy converts the configured thresholds into the detector's
// policy value.
func (c *Config) DetectorPolicy() analysis.Policy {
	return analysis.Policy{
		TimeoutRateThreshold: c.Policy.TimeoutRateThreshold,
		DurationMultiplier:   c.Policy.DurationMultiplier,
	}
}

// RuleTable converts the configured rules into the recommendation table.
// With no rules configured the stock table applies.
func (c *Config) RuleTable() []analysis.Rule {
	if len(c.Rules) == 0 {
		return analysis.DefaultRules()
	}
	out := make([]analysis.Rule, 0, len(c.Rules))
	for _, r := range c.Rules {
		out = append(out, analysis.Rule{
			Name:      r.Name,
			Condition: r.Condition,
			Priority:  analysis.Priority(r.Priority),
			Action:    r.Action,
			Impact:    r.Impact,
		})
	}
	return out
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	pol := analysis.DefaultPolicy()
	return &Config{
		Engine: EngineConfig{
			APIKeyHeader:   DefaultAPIKeyHeader,
			Timeout:        DefaultEngineTimeout,
			ExecutionLimit: DefaultExecutionLimit,
			DefinitionTTL:  DefaultDefinitionTTL,
			ExecutionTTL:   DefaultExecutionTTL,
		},
		Server: ServerConfig{
			HTTPPort:       DefaultHTTPPort,
			StreamInterval: DefaultStreamInterval,
			ReportTTL:      DefaultReportTTL,
		},
		Poll: PollConfig{
			Interval: DefaultPollInterval,
		},
		Policy: PolicyConfig{
			TimeoutRateThreshold: pol.TimeoutRateThreshold,
			DurationMultiplier:   pol.DurationMultiplier,
		},
		Baselines: BaselineConfig{
			Default: DefaultBaseline,
		},
		Notify: NotifyConfig{
			Cooldown: DefaultCooldown,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Engine.BaseURL == "" {
		return fmt.Errorf("engine.base_url is required")
	}
	if cfg.Engine.Timeout <= 0 {
		return fmt.Errorf("engine.timeout must be positive")
	}
	if cfg.Engine.ExecutionLimit <= 0 {
		return fmt.Errorf("engine.execution_limit must be positive")
	}
	if cfg.Engine.DefinitionTTL <= 0 {
		return fmt.Errorf("engine.definition_ttl must be positive")
	}
	if cfg.Engine.ExecutionTTL <= 0 {
		return fmt.Errorf("engine.execution_ttl must be positive")
	}
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port must be in 1..65535")
	}
	if cfg.Server.StreamInterval <= 0 {
		return fmt.Errorf("server.stream_interval must be positive")
	}
	if cfg.Server.ReportTTL <= 0 {
		return fmt.Errorf("server.report_ttl must be positive")
	}
	if cfg.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if cfg.Policy.TimeoutRateThreshold <= 0 || cfg.Policy.TimeoutRateThreshold >= 1 {
		return fmt.Errorf("policy.timeout_rate_threshold must be in (0,1)")
	}
	if cfg.Policy.DurationMultiplier <= 1 {
		return fmt.Errorf("policy.duration_multiplier must be above 1")
	}
	if cfg.Baselines.Default < 0 {
		return fmt.Errorf("baselines.default must not be negative")
	}
	for id, d := range cfg.Baselines.Workflows {
		if d < 0 {
			return fmt.Errorf("baselines.workflows[%s] must not be negative", id)
		}
	}
	for i, r := range cfg.Rules {
		if r.Name == "" {
			return fmt.Errorf("rules[%d]: name is required", i)
		}
		if err := analysis.CheckCondition(r.Condition); err != nil {
			return fmt.Errorf("rules[%d] %q: %w", i, r.Name, err)
		}
		if !analysis.Priority(r.Priority).Valid() {
			return fmt.Errorf("rules[%d] %q: unknown priority %q", i, r.Name, r.Priority)
		}
		if r.Action == "" {
			return fmt.Errorf("rules[%d] %q: action is required", i, r.Name)
		}
	}
	if cfg.Notify.Cooldown < 0 {
		return fmt.Errorf("notify.cooldown must not be negative")
	}
	for i, w := range cfg.Notify.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("notify.webhooks[%d]: unknown type %q", i, w.Type)
		}
		if w.URLEnv == "" {
			return fmt.Errorf("notify.webhooks[%d]: url_env is required", i)
		}
	}
	return nil
}
