package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/flowpulse/flowpulse/internal/analysis"
	"github.com/flowpulse/flowpulse/internal/notify"
	"github.com/flowpulse/flowpulse/internal/store"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads reports from the store and notifications from the notify engine
// and returns JSON responses.
type Handler struct {
	store    *store.Store
	notifier *notify.Engine
	mux      *http.ServeMux
}

// New creates a Handler wired to the given report store and notify engine
// and registers all routes.
func New(st *store.Store, notifier *notify.Engine) http.Handler {
	h := &Handler{store: st, notifier: notifier, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/workflows", h.listWorkflows)
	h.mux.HandleFunc("/api/v1/workflows/", h.getWorkflow) // subtree, extracts {id}
	h.mux.HandleFunc("/api/v1/issues", h.issues)
	h.mux.HandleFunc("/api/v1/notifications", h.notifications)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health, the fleet overview.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.Live()
	resp := HealthResponse{
		WorkflowCount:     len(entries),
		NotificationCount: len(h.notifier.Active()),
	}

	if len(entries) == 0 {
		resp.State = "unknown"
		jsonResp(w, http.StatusOK, resp)
		return
	}

	var totalRate float64
	for _, e := range entries {
		totalRate += e.Report.Health.CompletionRate
		switch e.Report.Health.Status {
		case analysis.StatusHealthy:
			resp.HealthyCount++
		case analysis.StatusWarning:
			resp.WarningCount++
		case analysis.StatusCritical:
			resp.CriticalCount++
		}
	}

	resp.AvgCompletionRate = totalRate / float64(len(entries))
	resp.State = string(worstStatus(entries))
	jsonResp(w, http.StatusOK, resp)
}

// listWorkflows returns GET /api/v1/workflows, all live reports summarized.
func (h *Handler) listWorkflows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, summaries(h.store))
}

// getWorkflow returns GET /api/v1/workflows/{id}, one workflow's full report.
func (h *Handler) getWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/workflows/")
	if id == "" {
		// Redirect bare /api/v1/workflows/ to the list handler.
		h.listWorkflows(w, r)
		return
	}

	e, ok := h.store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "workflow not found")
		return
	}
	// Exclude stale entries, treat them as not found.
	if time.Since(e.UpdatedAt) > h.store.TTL() {
		jsonErr(w, http.StatusNotFound, "workflow not found")
		return
	}

	jsonResp(w, http.StatusOK, toWorkflowResponse(e))
}

// issues returns GET /api/v1/issues, every issue across the live reports with
// per-severity counts. Entries are grouped by workflow in name order and keep
// the detector's emission order within a workflow.
func (h *Handler) issues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := IssuesResponse{Issues: make([]IssueEntry, 0)}
	for _, e := range sortedEntries(h.store) {
		for _, is := range e.Report.Issues {
			resp.Issues = append(resp.Issues, IssueEntry{
				WorkflowID:   e.Report.WorkflowID,
				WorkflowName: e.Report.WorkflowName,
				Severity:     string(is.Severity),
				Message:      is.Message,
			})
			switch is.Severity {
			case analysis.SeverityError:
				resp.ErrorCount++
			case analysis.SeverityWarning:
				resp.WarningCount++
			}
		}
	}
	resp.Total = len(resp.Issues)
	jsonResp(w, http.StatusOK, resp)
}

// notifications returns GET /api/v1/notifications, firing notifications plus
// those resolved within the past hour.
func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.notifier.Active())
}

// --- snapshot ----------------------------------------------------------------

// BuildSnapshot assembles the fleet snapshot the stream hub pushes to
// subscribers. The workflow list matches GET /api/v1/workflows.
func BuildSnapshot(st *store.Store, at time.Time) SnapshotResponse {
	return SnapshotResponse{
		Workflows:   summaries(st),
		GeneratedAt: at.UTC().Format(time.RFC3339),
	}
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// worstStatus folds the live entries into a single fleet state:
// critical beats warning beats healthy.
func worstStatus(entries []store.Entry) analysis.HealthStatus {
	worst := analysis.StatusHealthy
	for _, e := range entries {
		switch e.Report.Health.Status {
		case analysis.StatusCritical:
			return analysis.StatusCritical
		case analysis.StatusWarning:
			worst = analysis.StatusWarning
		}
	}
	return worst
}

// sortedEntries returns the live entries ordered by workflow name, then ID,
// so list responses are stable across requests.
func sortedEntries(st *store.Store) []store.Entry {
	entries := st.Live()
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Report, entries[j].Report
		if a.WorkflowName != b.WorkflowName {
			return a.WorkflowName < b.WorkflowName
		}
		return a.WorkflowID < b.WorkflowID
	})
	return entries
}

func summaries(st *store.Store) []WorkflowSummary {
	entries := sortedEntries(st)
	out := make([]WorkflowSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, toSummary(e))
	}
	return out
}

// toSummary maps a store.Entry to its list representation.
func toSummary(e store.Entry) WorkflowSummary {
	rep := e.Report
	return WorkflowSummary{
		WorkflowID:          rep.WorkflowID,
		WorkflowName:        rep.WorkflowName,
		Status:              string(rep.Health.Status),
		CompletionRate:      rep.Health.CompletionRate,
		Total:               rep.Health.Total,
		Failed:              rep.Health.Failed,
		IssueCount:          len(rep.Issues),
		RecommendationCount: len(rep.Recommendations),
		UpdatedAt:           e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// toWorkflowResponse maps a store.Entry to the full report representation.
// Nil issue and recommendation slices become empty arrays, not null.
func toWorkflowResponse(e store.Entry) WorkflowResponse {
	rep := e.Report
	issues := rep.Issues
	if issues == nil {
		issues = []analysis.Issue{}
	}
	recs := rep.Recommendations
	if recs == nil {
		recs = []analysis.Recommendation{}
	}
	return WorkflowResponse{
		WorkflowID:      rep.WorkflowID,
		WorkflowName:    rep.WorkflowName,
		GeneratedAt:     rep.GeneratedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       e.UpdatedAt.UTC().Format(time.RFC3339),
		Health:          rep.Health,
		Issues:          issues,
		Recommendations: recs,
		Stats:           rep.Stats,
	}
}
