package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/exp/slog"

	"github.com/cloudwalt/fleet-digest/internal/cloudwatch"
	"github.com/cloudwalt/fleet-digest/internal/slack"
	"github.com/cloudwalt/fleet-digest/internal/supabase"
)

func testApp(t *testing.T, supaHandler http.HandlerFunc) (*App, *string) {
	t.Helper()
	lo := slog.New(slog.NewTextHandler(io.Discard, nil))

	supaSrv := httptest.NewServer(supaHandler)
	t.Cleanup(supaSrv.Close)

	var posted string
	slackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p map[string]string
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("bad slack payload: %v", err)
		}
		posted = p["text"]
	}))
	t.Cleanup(slackSrv.Close)

	app := &App{
		lo:       lo,
		opts:     Opts{SyncInterval: time.Hour},
		cwMgr:    cloudwatch.NewManager(lo, cloudwatch.Opts{MaxAttempts: 5}),
		supaMgr:  supabase.NewManager(lo, supabase.Opts{Endpoint: supaSrv.URL + "/%s", Timeout: time.Second}),
		slackMgr: slack.New(lo, slack.Opts{WebhookURL: slackSrv.URL, Timeout: time.Second}),
		instances: []supabase.Instance{
			{Label: "US", Project: "proj", Token: "tok"},
		},
	}
	return app, &posted
}

func TestRunOnceDeliversReport(t *testing.T) {
	app, posted := testApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("node_memory_MemTotal_bytes 1000\nnode_memory_MemAvailable_bytes 250\n"))
	})

	res := app.RunOnce(context.Background())

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", res.StatusCode)
	}
	if !res.Body.Slack.Posted {
		t.Fatalf("expected delivery, got %+v", res.Body.Slack)
	}
	if len(res.Body.Supabase) != 1 || res.Body.Supabase[0].Parsed == nil {
		t.Fatalf("expected parsed host metrics, got %+v", res.Body.Supabase)
	}

	if !strings.Contains(*posted, "Supabase Host Metrics (US)") {
		t.Errorf("host section missing from posted text:\n%s", *posted)
	}
	if !strings.Contains(*posted, "Memory Used: 75.0%") {
		t.Errorf("derived pct missing from posted text:\n%s", *posted)
	}
	if !strings.Contains(*posted, "_No data returned from CloudWatch_") {
		t.Errorf("no-targets sentence missing:\n%s", *posted)
	}
}

func TestRunOnceHostFailureDoesNotBlockDelivery(t *testing.T) {
	app, posted := testApp(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	res := app.RunOnce(context.Background())

	if !res.Body.Slack.Posted {
		t.Fatalf("a failed instance must not block delivery, got %+v", res.Body.Slack)
	}
	if len(res.Body.Supabase) != 1 {
		t.Fatalf("expected one host result, got %d", len(res.Body.Supabase))
	}
	hr := res.Body.Supabase[0]
	if hr.Err == "" || hr.Parsed != nil {
		t.Fatalf("expected error recorded with nil parsed value, got %+v", hr)
	}
	if !strings.Contains(*posted, "_Supabase metrics not available for US_") {
		t.Errorf("unavailable sentence missing:\n%s", *posted)
	}
}
