// Package notify turns workflow health transitions into operator
// notifications and delivers them to configured webhook targets.
//
// A workflow leaving the healthy state fires a notification; returning to
// healthy resolves it. A per-workflow cooldown keeps flapping workflows from
// spamming the targets.
package notify

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowpulse/flowpulse/internal/analysis"
	"github.com/flowpulse/flowpulse/internal/config"
	"github.com/flowpulse/flowpulse/internal/metrics"
)

const (
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Notification is a single health-transition event.
type Notification struct {
	ID           string     `json:"id"`
	WorkflowID   string     `json:"workflow_id"`
	WorkflowName string     `json:"workflow_name"`
	Severity     string     `json:"severity"` // "warning" | "critical"
	Message      string     `json:"message"`
	FiredAt      time.Time  `json:"fired_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	State        string     `json:"state"` // "firing" | "resolved"
}

// Engine watches reports for health transitions and owns the notification
// lifecycle. Safe for concurrent use.
type Engine struct {
	cooldown time.Duration
	webhooks []config.WebhookConfig
	reg      *metrics.Registry
	now      func() time.Time // injectable for tests

	mu       sync.Mutex
	active   map[string]*Notification // key: workflow ID
	lastFire map[string]time.Time
	history  []*Notification // recently resolved
	client   *http.Client
}

// New creates an Engine from the notify configuration.
// An Engine with no webhooks is valid; notifications are still tracked and
// served over the API, just not delivered anywhere.
func New(cfg config.NotifyConfig, reg *metrics.Registry) *Engine {
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Engine{
		cooldown: cfg.Cooldown,
		webhooks: cfg.Webhooks,
		reg:      reg,
		now:      time.Now,
		active:   make(map[string]*Notification),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Observe inspects one report. A non-healthy status fires a notification,
// subject to the cooldown; a healthy status resolves the active one, if any.
// Webhook delivery happens asynchronously.
func (e *Engine) Observe(rep *analysis.Report) {
	now := e.now()
	key := rep.WorkflowID

	if rep.Health.Status == analysis.StatusHealthy {
		e.mu.Lock()
		cur, ok := e.active[key]
		if !ok {
			e.mu.Unlock()
			return
		}
		e.resolveLocked(cur, now)
		cp := *cur
		e.mu.Unlock()

		e.reg.Inc(metrics.NotificationsResolvedTotal)
		slog.Info("notify: workflow recovered",
			"workflow", rep.WorkflowID, "name", rep.WorkflowName)
		go e.deliver(&cp)
		return
	}

	sev := severityFor(rep.Health.Status)

	e.mu.Lock()
	cur, hasActive := e.active[key]
	// Within the cooldown only a severity change may refire; after it the
	// notification refires as a reminder even if nothing changed.
	if now.Sub(e.lastFire[key]) <= e.cooldown && (!hasActive || cur.Severity == sev) {
		e.mu.Unlock()
		return
	}
	if hasActive {
		// Replaced by the new notification; no webhook for the old one.
		e.resolveLocked(cur, now)
	}

	n := &Notification{
		ID:           uuid.NewString(),
		WorkflowID:   rep.WorkflowID,
		WorkflowName: rep.WorkflowName,
		Severity:     sev,
		Message: fmt.Sprintf("workflow %s is %s: completion rate %.1f%%, %d open issues",
			rep.WorkflowName, rep.Health.Status, rep.Health.CompletionRate, len(rep.Issues)),
		FiredAt: now,
		State:   "firing",
	}
	e.active[key] = n
	e.lastFire[key] = now
	cp := *n
	e.mu.Unlock()

	e.reg.Inc(metrics.NotificationsFiredTotal)
	slog.Warn("notify: workflow unhealthy",
		"workflow", rep.WorkflowID,
		"name", rep.WorkflowName,
		"status", rep.Health.Status,
		"rate", rep.Health.CompletionRate,
		"severity", sev,
	)
	go e.deliver(&cp)
}

// resolveLocked marks n resolved and moves it from active into history.
// Caller holds e.mu.
func (e *Engine) resolveLocked(n *Notification, now time.Time) {
	resolved := now
	n.State = "resolved"
	n.ResolvedAt = &resolved
	delete(e.active, n.WorkflowID)

	e.history = append(e.history, n)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
}

// Active returns copies of all currently firing notifications plus any
// resolved within the past hour.
func (e *Engine) Active() []*Notification {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Notification, 0, len(e.active))

	for _, n := range e.active {
		cp := *n
		out = append(out, &cp)
	}
	for _, n := range e.history {
		if n.ResolvedAt != nil && n.ResolvedAt.After(cutoff) {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out
}

// FiringCount returns how many notifications are currently firing.
func (e *Engine) FiringCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// severityFor maps a non-healthy status to a notification severity.
func severityFor(s analysis.HealthStatus) string {
	if s == analysis.StatusCritical {
		return "critical"
	}
	return "warning"
}
