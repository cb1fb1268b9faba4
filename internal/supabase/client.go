// Package supabase fetches and parses host metrics from the Supabase
// privileged metrics endpoint.
package supabase

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/exp/slog"
)

const (
	userAgent = "fleet-digest"

	// defaultEndpoint is the per-project URL pattern. The project ref is
	// substituted for %s.
	defaultEndpoint = "https://%s.supabase.co/customer/v1/privileged/metrics"

	// authUser is the fixed Basic-auth username the endpoint expects.
	authUser = "service_role"
)

// Instance is one configured Supabase project. Both Project and Token
// must be present for the instance to be polled.
type Instance struct {
	Label   string
	Project string
	Token   string
}

type Opts struct {
	// Endpoint overrides the default URL pattern. Used by tests.
	Endpoint        string
	Timeout         time.Duration
	IdleConnTimeout time.Duration
	MaxIdleConns    int
}

// Manager fetches the raw exposition payload per instance.
type Manager struct {
	lo       *slog.Logger
	opts     Opts
	endpoint string
	client   *http.Client
}

// NewManager returns a new Supabase metrics manager.
func NewManager(lo *slog.Logger, opts Opts) *Manager {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:    opts.MaxIdleConns,
			IdleConnTimeout: opts.IdleConnTimeout,
		},
	}

	return &Manager{
		lo:       lo,
		opts:     opts,
		endpoint: endpoint,
		client:   client,
	}
}

// Fetch returns the raw text exposition payload for one instance.
func (m *Manager) Fetch(ctx context.Context, inst Instance) (string, error) {
	if inst.Project == "" || inst.Token == "" {
		return "", fmt.Errorf("project or token not set for instance %s", inst.Label)
	}

	url := fmt.Sprintf(m.endpoint, inst.Project)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("could not create request: %v", err)
	}
	req.Header.Set("Authorization", "Basic "+generateBasicAuthHeader(authUser, inst.Token))
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("User-Agent", userAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request for metrics failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http request failed with status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading metrics body failed: %w", err)
	}

	m.lo.Debug("fetched supabase metrics", "label", inst.Label, "bytes", len(body))
	return string(body), nil
}

// generateBasicAuthHeader generates a basic authentication header given a username and password.
func generateBasicAuthHeader(username, password string) string {
	auth := username + ":" + password
	return base64.StdEncoding.EncodeToString([]byte(auth))
}
