package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"github.com/cloudwalt/fleet-digest/internal/cloudwatch"
	"github.com/cloudwalt/fleet-digest/internal/report"
	"github.com/cloudwalt/fleet-digest/internal/slack"
	"github.com/cloudwalt/fleet-digest/internal/supabase"
	"github.com/cloudwalt/fleet-digest/internal/window"
	"github.com/cloudwalt/fleet-digest/pkg/models"
)

type App struct {
	lo   *slog.Logger
	opts Opts

	cwMgr    *cloudwatch.Manager
	supaMgr  *supabase.Manager
	slackMgr *slack.Manager

	targets   []models.Target
	instances []supabase.Instance
}

type Opts struct {
	SyncInterval time.Duration
}

// RunOnce executes one full invocation: collect, render, deliver. It
// always returns a result; anything short of a programming defect is
// carried inside it as data.
func (app *App) RunOnce(ctx context.Context) models.JobResult {
	win := window.Trailing24h(time.Now().UTC())

	services := app.CollectServiceMetrics(ctx, win)
	hosts := app.CollectHostMetrics(ctx)

	text := report.Build(win, services, hosts)
	app.lo.Debug("generated report", "text", text)

	delivery := app.slackMgr.Send(ctx, text)

	result := models.JobResult{
		StatusCode: http.StatusOK,
		Body: models.JobBody{
			Message:  "daily fleet metrics generated",
			Slack:    delivery,
			Services: services,
			Supabase: hosts,
		},
	}

	// The body doubles as the diagnostic record of the invocation.
	if body, err := json.Marshal(result.Body); err == nil {
		app.lo.Info("invocation finished", "posted", delivery.Posted, "body", string(body))
	}

	return result
}

// CollectServiceMetrics fetches CPU, memory and request-count metrics
// for every configured target, in config order. A failed utilization
// query is logged and leaves the field absent; a failed request-count
// query is already an error variant by the time it gets here.
func (app *App) CollectServiceMetrics(ctx context.Context, win window.Range) []models.ServiceMetrics {
	out := make([]models.ServiceMetrics, 0, len(app.targets))

	for _, t := range app.targets {
		rec := models.ServiceMetrics{
			Name:    t.Name,
			Cluster: t.Cluster,
			Service: t.Service,
			Region:  t.Region,
		}

		cpu, err := app.cwMgr.FetchUtilization(ctx, t.Cluster, t.Service, cloudwatch.MetricCPU, t.Region, win)
		if err != nil {
			app.lo.Error("cpu utilization query failed", "service", t.Name, "error", err)
		} else {
			rec.CPU = cpu
		}

		mem, err := app.cwMgr.FetchUtilization(ctx, t.Cluster, t.Service, cloudwatch.MetricMemory, t.Region, win)
		if err != nil {
			app.lo.Error("memory utilization query failed", "service", t.Name, "error", err)
		} else {
			rec.Mem = mem
		}

		if t.HasALB() {
			rec.Requests = app.cwMgr.FetchRequestTotal(ctx, t.LoadBalancer, t.TargetGroup, t.Region, win)
		}

		app.lo.Debug("fetched service metrics", "service", t.Name, "region", t.Region)
		out = append(out, rec)
	}

	return out
}

// CollectHostMetrics fetches and parses Supabase host metrics for every
// configured instance. One instance failing is recorded as its error
// string and does not stop the others or the report.
func (app *App) CollectHostMetrics(ctx context.Context) []models.HostResult {
	out := make([]models.HostResult, 0, len(app.instances))

	for _, inst := range app.instances {
		res := models.HostResult{Label: inst.Label}

		raw, err := app.supaMgr.Fetch(ctx, inst)
		if err != nil {
			app.lo.Error("fetching supabase metrics failed", "label", inst.Label, "error", err)
			res.Err = err.Error()
		} else {
			res.Parsed = supabase.Parse(raw)
		}

		out = append(out, res)
	}

	return out
}
