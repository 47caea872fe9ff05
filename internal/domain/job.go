package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// PredictionStatus is the remote lifecycle vocabulary reported by the prediction API.
type PredictionStatus string

const (
	PredictionStatusStarting   PredictionStatus = "starting"
	PredictionStatusProcessing PredictionStatus = "processing"
	PredictionStatusSucceeded  PredictionStatus = "succeeded"
	PredictionStatusFailed     PredictionStatus = "failed"
	PredictionStatusCanceled   PredictionStatus = "canceled"
)

// Final reports whether the remote service will never change the status again.
func (s PredictionStatus) Final() bool {
	switch s {
	case PredictionStatusSucceeded, PredictionStatusFailed, PredictionStatusCanceled:
		return true
	default:
		return false
	}
}

// Prediction is a read-only snapshot of a remote inference job as last observed.
type Prediction struct {
	ID                  string            `json:"id"`
	Model               string            `json:"model,omitempty"`
	Version             string            `json:"version,omitempty"`
	Status              PredictionStatus  `json:"status"`
	Input               map[string]any    `json:"input,omitempty"`
	Output              json.RawMessage   `json:"output,omitempty"`
	Error               json.RawMessage   `json:"error,omitempty"`
	Logs                string            `json:"logs,omitempty"`
	Webhook             string            `json:"webhook,omitempty"`
	WebhookEventsFilter []string          `json:"webhook_events_filter,omitempty"`
	URLs                map[string]string `json:"urls,omitempty"`
	Metrics             map[string]any    `json:"metrics,omitempty"`
	CreatedAt           *time.Time        `json:"created_at,omitempty"`
	StartedAt           *time.Time        `json:"started_at,omitempty"`
	CompletedAt         *time.Time        `json:"completed_at,omitempty"`
}

// ErrorMessage returns the job-level error reported by the remote service, or
// an empty string when there is none.
func (p *Prediction) ErrorMessage() string {
	if p == nil {
		return ""
	}
	return rawText(p.Error)
}

// OutputURLs normalizes the output field, which is a single URL for image
// models and an ordered list for others.
func (p *Prediction) OutputURLs() []string {
	if p == nil || len(p.Output) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(p.Output, &single); err == nil {
		if single = strings.TrimSpace(single); single != "" {
			return []string{single}
		}
		return nil
	}
	var many []any
	if err := json.Unmarshal(p.Output, &many); err != nil {
		return nil
	}
	urls := make([]string, 0, len(many))
	for _, item := range many {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			urls = append(urls, strings.TrimSpace(s))
		}
	}
	return urls
}

func rawText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}

// JobRequest is the payload forwarded to the prediction API for one submission.
type JobRequest struct {
	Version             string         `json:"version"`
	Input               map[string]any `json:"input"`
	Webhook             string         `json:"webhook,omitempty"`
	WebhookEventsFilter []string       `json:"webhook_events_filter,omitempty"`
}
