package metrics

import (
	"sync"
	"sync/atomic"
)

// MetricKey is a strongly typed metric identifier.
type MetricKey string

// Metric keys (centralized). The _total suffix marks monotonic counters;
// everything else is a gauge updated with Set.
const (
	// Engine client
	EngineRequestsTotal        MetricKey = "engine_requests_total"
	EngineRequestFailuresTotal MetricKey = "engine_request_failures_total"
	EngineCacheHitsTotal       MetricKey = "engine_cache_hits_total"

	// Collector
	CollectCyclesTotal    MetricKey = "collect_cycles_total"
	ReportsComputedTotal  MetricKey = "reports_computed_total"
	ReportFailuresTotal   MetricKey = "report_failures_total"
	IssuesDetectedTotal   MetricKey = "issues_detected_total"
	RecommendationsTotal  MetricKey = "recommendations_emitted_total"
	WorkflowsObserved     MetricKey = "workflows_observed"
	WorkflowsSkippedTotal MetricKey = "workflows_skipped_total"

	// Notifications
	NotificationsFiredTotal    MetricKey = "notifications_fired_total"
	NotificationsResolvedTotal MetricKey = "notifications_resolved_total"
	WebhookDeliveriesTotal     MetricKey = "webhook_deliveries_total"
	WebhookFailuresTotal       MetricKey = "webhook_failures_total"

	// Stream
	StreamClientsConnected MetricKey = "stream_clients_connected"
	StreamBroadcastsTotal  MetricKey = "stream_broadcasts_total"
)

// Registry stores all metrics.
type Registry struct {
	mu     sync.RWMutex
	values map[MetricKey]*int64
}

// NewRegistry creates a metrics registry.
func NewRegistry() *Registry {
	return &Registry{
		values: make(map[MetricKey]*int64),
	}
}

// Inc increments a metric by 1.
func (r *Registry) Inc(key MetricKey) {
	r.Add(key, 1)
}

// Add increments a metric by delta.
func (r *Registry) Add(key MetricKey, delta int64) {
	atomic.AddInt64(r.slot(key), delta)
}

// Set overwrites a metric with an absolute value. Used for gauges like the
// number of workflows observed in the last cycle.
func (r *Registry) Set(key MetricKey, value int64) {
	atomic.StoreInt64(r.slot(key), value)
}

// slot returns the counter cell for key, allocating it on first use.
func (r *Registry) slot(key MetricKey) *int64 {
	r.mu.RLock()
	ptr, ok := r.values[key]
	r.mu.RUnlock()
	if ok {
		return ptr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring the write lock.
	if ptr, ok = r.values[key]; ok {
		return ptr
	}
	ptr = new(int64)
	r.values[key] = ptr
	return ptr
}
