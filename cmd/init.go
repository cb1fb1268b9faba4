package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"
	"golang.org/x/exp/slog"

	"github.com/cloudwalt/fleet-digest/internal/cloudwatch"
	"github.com/cloudwalt/fleet-digest/internal/slack"
	"github.com/cloudwalt/fleet-digest/internal/supabase"
	"github.com/cloudwalt/fleet-digest/pkg/models"
)

// initConfig loads config to `ko`
// object.
func initConfig(cfgDefault, envPrefix string) (*koanf.Koanf, error) {
	var (
		ko = koanf.New(".")
		f  = flag.NewFlagSet("fleet-digest", flag.ContinueOnError)
	)

	// Configure Flags.
	f.Usage = func() {
		fmt.Println(f.FlagUsages())
		os.Exit(0)
	}

	// Register `--config` flag.
	cfgPath := f.String("config", cfgDefault, "Path to a config file to load.")

	// Parse and Load Flags.
	err := f.Parse(os.Args[1:])
	if err != nil {
		return nil, err
	}

	// Load the config files from the path provided.
	err = ko.Load(file.Provider(*cfgPath), toml.Parser())
	if err != nil {
		return nil, err
	}

	// Load environment variables if the key is given
	// and merge into the loaded config.
	if envPrefix != "" {
		err = ko.Load(env.Provider(envPrefix, ".", func(s string) string {
			return strings.Replace(strings.ToLower(
				strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
		}), nil)
		if err != nil {
			return nil, err
		}
	}

	return ko, nil
}

// initLogger initialies a logger.
func initLogger(lvl string) *slog.Logger {
	opts := slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelInfo,
	}
	if lvl == "debug" {
		opts.Level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stdout, &opts).WithAttrs([]slog.Attr{slog.String("component", "fleet-digest")}))
}

// initTargets loads the monitored ECS services from the configuration.
// The targets table is ordered; its order is the report order.
func initTargets(ko *koanf.Koanf) ([]models.Target, error) {
	var targets []models.Target
	if err := ko.Unmarshal("targets", &targets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal targets: %v", err)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets found in the config")
	}

	for _, t := range targets {
		if t.Name == "" || t.Cluster == "" || t.Service == "" || t.Region == "" {
			return nil, fmt.Errorf("target %q must set name, cluster, service and region", t.Name)
		}
	}

	return targets, nil
}

// initCloudWatchManager initialises the CloudWatch manager.
func initCloudWatchManager(ko *koanf.Koanf, lo *slog.Logger) *cloudwatch.Manager {
	return cloudwatch.NewManager(lo, cloudwatch.Opts{
		MaxAttempts: ko.MustInt("cloudwatch.max_attempts"),
	})
}

// initSupabaseManager initialises the Supabase metrics manager.
func initSupabaseManager(ko *koanf.Koanf, lo *slog.Logger) *supabase.Manager {
	return supabase.NewManager(lo, supabase.Opts{
		Timeout:         ko.MustDuration("supabase.timeout"),
		IdleConnTimeout: ko.MustDuration("supabase.idle_timeout"),
		MaxIdleConns:    ko.MustInt("supabase.max_idle_conns"),
	})
}

// initSupabaseInstances returns the instances that have both
// credentials present. Each pair is independently optional; an
// unconfigured instance is skipped, not an error.
func initSupabaseInstances(ko *koanf.Koanf, lo *slog.Logger) []supabase.Instance {
	var out []supabase.Instance

	for _, label := range []string{"us", "eu"} {
		var (
			project = ko.String("supabase." + label + ".project")
			token   = ko.String("supabase." + label + ".token")
		)
		if project == "" || token == "" {
			lo.Debug("supabase instance not configured, skipping", "label", label)
			continue
		}

		out = append(out, supabase.Instance{
			Label:   strings.ToUpper(label),
			Project: project,
			Token:   token,
		})
	}

	return out
}

// initSlackManager initialises the Slack webhook manager. The webhook
// URL is optional: without it the job still runs and reports
// "not configured" instead of posting.
func initSlackManager(ko *koanf.Koanf, lo *slog.Logger) *slack.Manager {
	return slack.New(lo, slack.Opts{
		WebhookURL:      ko.String("slack.webhook_url"),
		Timeout:         ko.MustDuration("slack.timeout"),
		IdleConnTimeout: ko.MustDuration("slack.idle_timeout"),
		MaxIdleConns:    ko.MustInt("slack.max_idle_conns"),
	})
}

func initOpts(ko *koanf.Koanf) Opts {
	return Opts{
		SyncInterval: ko.MustDuration("app.sync_interval"),
	}
}
