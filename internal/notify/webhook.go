package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/flowpulse/flowpulse/internal/metrics"
)

// Teams card colors per severity.
const (
	colorCritical = "FF4F6A"
	colorWarning  = "FFAB40"
)

type slackPayload struct {
	Text string `json:"text"`
}

type teamsCard struct {
	Type       string `json:"@type"`
	Context    string `json:"@context"`
	ThemeColor string `json:"themeColor"`
	Summary    string `json:"summary"`
	Title      string `json:"title"`
	Text       string `json:"text"`
}

// deliver posts n to every configured webhook target. Failures are counted
// and logged, never returned; notification delivery must not stall the
// collector's cycle.
func (e *Engine) deliver(n *Notification) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			// URLEnv not set in this environment.
			continue
		}

		body, err := encodePayload(wh.Type, n)
		if err != nil {
			slog.Warn("notify: skipping webhook", "type", wh.Type, "err", err)
			continue
		}

		if err := e.post(url, body); err != nil {
			e.reg.Inc(metrics.WebhookFailuresTotal)
			slog.Error("notify: webhook delivery failed",
				"type", wh.Type, "workflow", n.WorkflowID, "err", err)
			continue
		}

		e.reg.Inc(metrics.WebhookDeliveriesTotal)
		slog.Debug("notify: webhook delivered",
			"type", wh.Type, "workflow", n.WorkflowID, "state", n.State)
	}
}

// encodePayload renders n in the target's expected format.
func encodePayload(kind string, n *Notification) ([]byte, error) {
	switch kind {
	case "slack":
		return json.Marshal(slackPayload{Text: slackText(n)})
	case "teams":
		return json.Marshal(teamsCard{
			Type:       "MessageCard",
			Context:    "http://schema.org/extensions",
			ThemeColor: cardColor(n.Severity),
			Summary:    n.WorkflowName,
			Title:      "FlowPulse: " + n.WorkflowName,
			Text:       n.Message,
		})
	case "http":
		// Generic receivers get the notification as-is.
		return json.Marshal(map[string]*Notification{"notification": n})
	}
	return nil, fmt.Errorf("unknown webhook type %q", kind)
}

func slackText(n *Notification) string {
	if n.State == "resolved" {
		return "*[RESOLVED]* " + n.Message
	}
	return fmt.Sprintf("*[%s]* %s", strings.ToUpper(n.Severity), n.Message)
}

// cardColor picks the Teams theme color. Only warning and critical occur;
// severityFor never produces anything else.
func cardColor(severity string) string {
	if severity == "critical" {
		return colorCritical
	}
	return colorWarning
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
