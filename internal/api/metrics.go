package api

import (
	"net/http"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/flowpulse/flowpulse/internal/metrics"
)

// Metrics returns the GET /metrics handler: the counter registry rendered in
// Prometheus text exposition format. Keys ending in _total are exposed as
// counters, everything else as gauges.
func Metrics(reg *metrics.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		snap := reg.Snapshot()
		names := make([]string, 0, len(snap))
		for name := range snap {
			names = append(names, name)
		}
		sort.Strings(names)

		format := expfmt.NewFormat(expfmt.TypeTextPlain)
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, name := range names {
			if err := enc.Encode(toFamily(name, snap[name])); err != nil {
				// Client went away mid-write.
				return
			}
		}
	})
}

// toFamily wraps one registry value in a single-sample MetricFamily.
func toFamily(name string, value int64) *dto.MetricFamily {
	v := float64(value)
	mf := &dto.MetricFamily{Name: &name}

	if strings.HasSuffix(name, "_total") {
		t := dto.MetricType_COUNTER
		mf.Type = &t
		mf.Metric = []*dto.Metric{{Counter: &dto.Counter{Value: &v}}}
		return mf
	}

	t := dto.MetricType_GAUGE
	mf.Type = &t
	mf.Metric = []*dto.Metric{{Gauge: &dto.Gauge{Value: &v}}}
	return mf
}
