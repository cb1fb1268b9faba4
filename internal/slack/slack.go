// Package slack posts the rendered report to an incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"github.com/cloudwalt/fleet-digest/pkg/models"
)

const userAgent = "fleet-digest"

type Opts struct {
	WebhookURL      string
	Timeout         time.Duration
	IdleConnTimeout time.Duration
	MaxIdleConns    int
}

// Manager delivers report text to the configured webhook.
type Manager struct {
	lo     *slog.Logger
	opts   Opts
	client *http.Client
}

type payload struct {
	Text string `json:"text"`
}

// New returns a new Slack webhook manager. An empty webhook URL is
// allowed: delivery then reports "not configured" instead of posting.
func New(lo *slog.Logger, opts Opts) *Manager {
	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:    opts.MaxIdleConns,
			IdleConnTimeout: opts.IdleConnTimeout,
		},
	}

	return &Manager{
		lo:     lo,
		opts:   opts,
		client: client,
	}
}

// Send posts the text as a JSON payload to the webhook. Failures of any
// kind come back inside the DeliveryResult; Send never returns an
// error, so a broken webhook cannot take the invocation down with it.
func (m *Manager) Send(ctx context.Context, text string) models.DeliveryResult {
	if m.opts.WebhookURL == "" {
		return models.DeliveryResult{Posted: false, Reason: "not configured"}
	}

	body, err := json.Marshal(payload{Text: text})
	if err != nil {
		return models.DeliveryResult{Posted: false, Err: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.opts.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return models.DeliveryResult{Posted: false, Err: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		m.lo.Error("posting to slack webhook failed", "error", err)
		return models.DeliveryResult{Posted: false, Err: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		m.lo.Error("slack webhook returned non-2xx", "status", resp.StatusCode)
		return models.DeliveryResult{Posted: false, Err: "non-2xx response: " + resp.Status}
	}

	return models.DeliveryResult{Posted: true, Status: resp.StatusCode}
}
