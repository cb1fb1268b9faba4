// Package cloudwatch fetches ECS utilization and ALB request-count
// statistics over the report window.
package cloudwatch

import (
	"context"
	"fmt"
	"math"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cw "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"golang.org/x/exp/slog"

	"github.com/cloudwalt/fleet-digest/internal/window"
	"github.com/cloudwalt/fleet-digest/pkg/models"
)

// Metric names queried per ECS service.
const (
	MetricCPU    = "CPUUtilization"
	MetricMemory = "MemoryUtilization"
)

// period is the statistics granularity in seconds.
const period = 300

type Opts struct {
	MaxAttempts int
}

// api is the slice of the CloudWatch client used by the manager. Tests
// substitute a fake through it.
type api interface {
	GetMetricStatistics(ctx context.Context, params *cw.GetMetricStatisticsInput, optFns ...func(*cw.Options)) (*cw.GetMetricStatisticsOutput, error)
}

// Manager holds one CloudWatch client per region. Clients are built
// lazily and kept for the process lifetime; they hold no state that
// could go stale.
type Manager struct {
	lo      *slog.Logger
	opts    Opts
	clients map[string]api
}

// NewManager returns a new CloudWatch manager.
func NewManager(lo *slog.Logger, opts Opts) *Manager {
	return &Manager{
		lo:      lo,
		opts:    opts,
		clients: make(map[string]api),
	}
}

func (m *Manager) client(ctx context.Context, region string) (api, error) {
	if c, ok := m.clients[region]; ok {
		return c, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = m.opts.MaxAttempts
			})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config for region %s: %w", region, err)
	}

	c := cw.NewFromConfig(cfg)
	m.clients[region] = c
	return c, nil
}

// FetchUtilization queries Average and Maximum statistics for an ECS
// service metric over the window at 5-minute granularity. Zero returned
// datapoints yields (nil, nil): absent data is not an error.
func (m *Manager) FetchUtilization(ctx context.Context, cluster, service, metric, region string, win window.Range) (*models.Utilization, error) {
	cli, err := m.client(ctx, region)
	if err != nil {
		return nil, err
	}

	out, err := cli.GetMetricStatistics(ctx, &cw.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/ECS"),
		MetricName: aws.String(metric),
		Dimensions: []types.Dimension{
			{Name: aws.String("ClusterName"), Value: aws.String(cluster)},
			{Name: aws.String("ServiceName"), Value: aws.String(service)},
		},
		StartTime:  aws.Time(win.Start),
		EndTime:    aws.Time(win.End),
		Period:     aws.Int32(period),
		Statistics: []types.Statistic{types.StatisticAverage, types.StatisticMaximum},
		Unit:       types.StandardUnitPercent,
	})
	if err != nil {
		return nil, fmt.Errorf("get metric statistics for %s/%s %s: %w", cluster, service, metric, err)
	}

	return summarize(out.Datapoints), nil
}

// FetchRequestTotal queries the RequestCount Sum for an ALB target
// group over the window. It never returns an error: transport and API
// failures come back as the error variant so one bad resource cannot
// blank the whole report. Zero datapoints yields nil.
func (m *Manager) FetchRequestTotal(ctx context.Context, loadBalancer, targetGroup, region string, win window.Range) *models.RequestCount {
	cli, err := m.client(ctx, region)
	if err != nil {
		return &models.RequestCount{Err: err.Error()}
	}

	out, err := cli.GetMetricStatistics(ctx, &cw.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/ApplicationELB"),
		MetricName: aws.String("RequestCount"),
		Dimensions: []types.Dimension{
			{Name: aws.String("LoadBalancer"), Value: aws.String(loadBalancer)},
			{Name: aws.String("TargetGroup"), Value: aws.String(targetGroup)},
		},
		StartTime:  aws.Time(win.Start),
		EndTime:    aws.Time(win.End),
		Period:     aws.Int32(period),
		Statistics: []types.Statistic{types.StatisticSum},
		Unit:       types.StandardUnitCount,
	})
	if err != nil {
		m.lo.Error("request count query failed", "load_balancer", loadBalancer, "target_group", targetGroup, "error", err)
		return &models.RequestCount{Err: err.Error()}
	}

	if len(out.Datapoints) == 0 {
		return nil
	}

	var total float64
	for _, dp := range out.Datapoints {
		if dp.Sum != nil {
			total += *dp.Sum
		}
	}
	return &models.RequestCount{Total: int64(total)}
}

// summarize reduces per-bucket datapoints to an overall average of
// averages and a maximum of maxima, both rounded to 2 decimals.
func summarize(dps []types.Datapoint) *models.Utilization {
	if len(dps) == 0 {
		return nil
	}

	var (
		avgSum float64
		avgN   int
		max    float64
	)
	for _, dp := range dps {
		if dp.Average != nil {
			avgSum += *dp.Average
			avgN++
		}
		if dp.Maximum != nil && *dp.Maximum > max {
			max = *dp.Maximum
		}
	}

	u := &models.Utilization{Max: round2(max)}
	if avgN > 0 {
		u.Average = round2(avgSum / float64(avgN))
	}
	return u
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
