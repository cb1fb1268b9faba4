// Package report renders the daily digest text posted to Slack.
package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/cloudwalt/fleet-digest/internal/window"
	"github.com/cloudwalt/fleet-digest/pkg/models"
)

// maxNameWidth caps the service column so long names cannot blow up the
// table width in Slack.
const maxNameWidth = 30

// Build renders the full report: header, fenced service table and one
// section per Supabase instance.
func Build(win window.Range, services []models.ServiceMetrics, hosts []models.HostResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 *Daily System Metrics* (UTC %s) - Past 24 Hrs\n", win.End.UTC().Format("2006-01-02 15:04"))

	if len(services) == 0 {
		b.WriteString("_No data returned from CloudWatch_")
	} else {
		b.WriteString("```\n")
		b.WriteString(serviceTable(services))
		b.WriteString("```")
	}

	for _, h := range hosts {
		b.WriteString("\n\n")
		b.WriteString(hostSection(h))
	}

	return b.String()
}

func serviceTable(services []models.ServiceMetrics) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.Header("Service", "CPU Avg", "CPU Max", "Mem Avg", "Mem Max", "Requests")

	for _, m := range services {
		table.Append(
			truncate(m.Name, maxNameWidth),
			pctCell(m.CPU, avgOf),
			pctCell(m.CPU, maxOf),
			pctCell(m.Mem, avgOf),
			pctCell(m.Mem, maxOf),
			requestsCell(m.Requests),
		)
	}

	table.Render()
	return buf.String()
}

func avgOf(u *models.Utilization) float64 { return u.Average }
func maxOf(u *models.Utilization) float64 { return u.Max }

// pctCell renders one utilization statistic, suffixed with % unless the
// value is the placeholder.
func pctCell(u *models.Utilization, stat func(*models.Utilization) float64) string {
	if u == nil {
		return "-"
	}
	return formatNumber(stat(u)) + "%"
}

// requestsCell renders the request count: ERR on the error variant, the
// total otherwise, a placeholder when absent.
func requestsCell(rc *models.RequestCount) string {
	switch {
	case rc == nil:
		return "-"
	case rc.Err != "":
		return "ERR"
	default:
		return strconv.FormatInt(rc.Total, 10)
	}
}

// formatNumber keeps two decimals but trims trailing zeros, so 12.35
// stays 12.35 and 10.00 becomes 10.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func hostSection(h models.HostResult) string {
	if h.Parsed == nil {
		return fmt.Sprintf("_Supabase metrics not available for %s_", h.Label)
	}

	p := h.Parsed
	var b strings.Builder
	fmt.Fprintf(&b, "Supabase Host Metrics (%s)\n", h.Label)
	fmt.Fprintf(&b, "  • Memory Used: %s (%sMB free / %sMB total)\n", pct1(p.MemoryUsedPct), count(p.MemoryFreeMB), count(p.MemoryTotalMB))
	fmt.Fprintf(&b, "  • Disk Used (/): %s (%sMB free / %sMB total)\n", pct1(p.DiskUsedPct), count(p.DiskFreeMB), count(p.DiskTotalMB))
	fmt.Fprintf(&b, "  • Network RX: %s GB | TX: %s GB\n", gb(p.NetRxGB), gb(p.NetTxGB))
	fmt.Fprintf(&b, "  • Disk Read: %s GB | Written: %s GB\n", gb(p.DiskReadGB), gb(p.DiskWrittenGB))
	fmt.Fprintf(&b, "  • Users: %s\n", count(p.Users))
	fmt.Fprintf(&b, "  • Active Auth Connections: %s", count(p.DBConnAuth))
	return b.String()
}

func pct1(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64) + "%"
}

func gb(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func count(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}
