package report

import (
	"strings"
	"testing"
	"time"

	"github.com/cloudwalt/fleet-digest/internal/window"
	"github.com/cloudwalt/fleet-digest/pkg/models"
)

func testWindow() window.Range {
	return window.Trailing24h(time.Date(2024, 3, 7, 9, 41, 0, 0, time.UTC))
}

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{12.35, "12.35"},
		{10.00, "10"},
		{10.50, "10.5"},
		{0, "0"},
		{99.999, "100"},
	}
	for _, c := range cases {
		if got := formatNumber(c.in); got != c.want {
			t.Errorf("formatNumber(%v): got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPctCell(t *testing.T) {
	u := &models.Utilization{Average: 12.35, Max: 10}
	if got := pctCell(u, avgOf); got != "12.35%" {
		t.Errorf("avg cell: got %q, want 12.35%%", got)
	}
	if got := pctCell(u, maxOf); got != "10%" {
		t.Errorf("max cell: got %q, want 10%%", got)
	}
	if got := pctCell(nil, avgOf); got != "-" {
		t.Errorf("absent cell: got %q, want - without %% suffix", got)
	}
}

func TestRequestsCell(t *testing.T) {
	if got := requestsCell(nil); got != "-" {
		t.Errorf("absent: got %q, want -", got)
	}
	if got := requestsCell(&models.RequestCount{Err: "timeout"}); got != "ERR" {
		t.Errorf("error variant: got %q, want ERR", got)
	}
	if got := requestsCell(&models.RequestCount{Total: 123456}); got != "123456" {
		t.Errorf("total: got %q, want 123456", got)
	}
}

func TestBuildAllAbsentRecord(t *testing.T) {
	out := Build(testWindow(), []models.ServiceMetrics{
		{Name: "Ghost Service", Cluster: "c", Service: "s", Region: "us-east-1"},
	}, nil)

	if !strings.Contains(out, "Ghost Service") {
		t.Fatalf("service name missing from report:\n%s", out)
	}
	if strings.Contains(out, "ERR") {
		t.Errorf("absent requests must render as placeholder, not ERR:\n%s", out)
	}
	if strings.Contains(out, "-%") {
		t.Errorf("placeholder must not carry a %% suffix:\n%s", out)
	}
	if !strings.Contains(out, "-") {
		t.Errorf("expected placeholder cells:\n%s", out)
	}
}

func TestBuildRequestError(t *testing.T) {
	out := Build(testWindow(), []models.ServiceMetrics{
		{Name: "API", Requests: &models.RequestCount{Err: "timeout"}},
	}, nil)

	if !strings.Contains(out, "ERR") {
		t.Fatalf("error variant must render ERR:\n%s", out)
	}
	if strings.Contains(out, "timeout") {
		t.Errorf("raw error text does not belong in the table:\n%s", out)
	}
}

func TestBuildHeaderAndFence(t *testing.T) {
	out := Build(testWindow(), []models.ServiceMetrics{{Name: "API"}}, nil)

	if !strings.Contains(out, "(UTC 2024-03-07 09:41) - Past 24 Hrs") {
		t.Errorf("window end missing from header:\n%s", out)
	}
	if strings.Count(out, "```") != 2 {
		t.Errorf("table must be fenced:\n%s", out)
	}
}

func TestBuildTruncatesLongNames(t *testing.T) {
	long := strings.Repeat("x", 45)
	out := Build(testWindow(), []models.ServiceMetrics{{Name: long}}, nil)

	if strings.Contains(out, long) {
		t.Errorf("name must be truncated to %d chars", maxNameWidth)
	}
	if !strings.Contains(out, strings.Repeat("x", maxNameWidth)) {
		t.Errorf("truncated name missing:\n%s", out)
	}
}

func TestBuildNoServices(t *testing.T) {
	out := Build(testWindow(), nil, nil)
	if !strings.Contains(out, "_No data returned from CloudWatch_") {
		t.Errorf("empty target list must render the no-data sentence:\n%s", out)
	}
}

func TestHostSection(t *testing.T) {
	pct := 75.0
	freeMB := int64(2048)
	rx := 3.25
	users := int64(41)
	out := Build(testWindow(), []models.ServiceMetrics{{Name: "API"}}, []models.HostResult{
		{Label: "US", Parsed: &models.HostMetrics{
			MemoryUsedPct: &pct,
			MemoryFreeMB:  &freeMB,
			NetRxGB:       &rx,
			Users:         &users,
		}},
	})

	if !strings.Contains(out, "Supabase Host Metrics (US)") {
		t.Fatalf("host section heading missing:\n%s", out)
	}
	if !strings.Contains(out, "Memory Used: 75.0% (2048MB free / -MB total)") {
		t.Errorf("memory line wrong:\n%s", out)
	}
	if !strings.Contains(out, "Network RX: 3.25 GB | TX: - GB") {
		t.Errorf("network line wrong:\n%s", out)
	}
	if !strings.Contains(out, "Users: 41") {
		t.Errorf("users line wrong:\n%s", out)
	}
	if !strings.Contains(out, "Active Auth Connections: -") {
		t.Errorf("connections line wrong:\n%s", out)
	}
}

func TestHostSectionUnavailable(t *testing.T) {
	out := Build(testWindow(), []models.ServiceMetrics{{Name: "API"}}, []models.HostResult{
		{Label: "EU", Err: "connection refused"},
	})

	if !strings.Contains(out, "_Supabase metrics not available for EU_") {
		t.Errorf("unavailable sentence missing:\n%s", out)
	}
}
