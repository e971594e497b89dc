// Package monitoring turns scheduled parity reports into webhook alerts.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/underwriting-cli/internal/config"
	"github.com/sells-group/underwriting-cli/internal/parity"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertParityMismatch AlertType = "parity_mismatch"
	AlertParityError    AlertType = "parity_error"
)

// maxListedFailures caps the mismatch lines carried in one alert.
const maxListedFailures = 10

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter inspects parity reports and posts an alert to a webhook when the
// engine drifts from its fixtures or the run cannot complete.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate returns the alerts raised by one scheduled parity run. A clean
// report raises none.
func (a *Alerter) Evaluate(report *parity.Report, runErr error, at time.Time) []Alert {
	at = at.UTC()
	if runErr != nil {
		return []Alert{{
			Type:      AlertParityError,
			Severity:  "high",
			Message:   fmt.Sprintf("Scheduled parity run failed: %v", runErr),
			Details:   map[string]any{"error": runErr.Error()},
			Timestamp: at,
		}}
	}
	if report == nil || report.Passed() {
		return nil
	}

	listed := report.Failures
	if len(listed) > maxListedFailures {
		listed = listed[:maxListedFailures]
	}
	return []Alert{{
		Type:     AlertParityMismatch,
		Severity: "high",
		Message: fmt.Sprintf(
			"BOE engine disagrees with %d parity expectation(s) across %d compared case(s) in %s",
			len(report.Failures), report.Compared(), report.Dir,
		),
		Details: map[string]any{
			"dir":      report.Dir,
			"compared": report.Compared(),
			"failures": len(report.Failures),
			"mismatch": listed,
		},
		Timestamp: at,
	}}
}

// HandleParity evaluates one scheduled parity run and sends whatever it
// raises. Returns the number of alerts sent.
func (a *Alerter) HandleParity(ctx context.Context, report *parity.Report, runErr error, at time.Time) int {
	return a.SendAlerts(ctx, a.Evaluate(report, runErr, at))
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
