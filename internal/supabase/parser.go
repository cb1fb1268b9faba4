package supabase

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloudwalt/fleet-digest/pkg/models"
)

// metricKeys maps accepted exposition metric names to internal keys.
// Names outside this table are dropped.
var metricKeys = map[string]string{
	"node_memory_MemTotal_bytes":        "mem_total",
	"node_memory_MemAvailable_bytes":    "mem_avail",
	"auth_users_user_count":             "users",
	"node_network_receive_bytes_total":  "net_rx",
	"node_network_transmit_bytes_total": "net_tx",
	"node_disk_read_bytes_total":        "disk_read",
	"node_disk_written_bytes_total":     "disk_written",
	"connection_stats_connection_count": "db_conn_auth",
	"node_filesystem_size_bytes":        "disk_total",
	"node_filesystem_free_bytes":        "disk_free",
}

var lineRE = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_:]*)(\{[^}]*\})?\s+([0-9.eE+-]+)$`)

// Parse extracts the mapped metric subset from a text exposition
// payload and computes the derived fields. Comment lines, blank lines
// and lines that do not match the exposition shape are silently
// skipped. Parse never fails: an unusable payload just yields a result
// with everything absent.
func Parse(payload string) *models.HostMetrics {
	raw := make(map[string]float64)

	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		m := lineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		metric, labels := m[1], m[2]

		val, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}
		if !acceptLabels(metric, labels) {
			continue
		}
		if key, ok := metricKeys[metric]; ok {
			raw[key] = val
		}
	}

	return derive(raw)
}

// acceptLabels applies the per-metric label filters: filesystem metrics
// only for the root mount, network metrics only for the primary
// interface, disk metrics only for the nvme root device, and the
// connection count only for the authenticator role.
func acceptLabels(metric, labels string) bool {
	switch metric {
	case "node_filesystem_size_bytes", "node_filesystem_free_bytes":
		return strings.Contains(labels, `mountpoint="/"`)
	case "node_network_receive_bytes_total", "node_network_transmit_bytes_total":
		return strings.Contains(labels, `device="ens5"`)
	case "node_disk_read_bytes_total", "node_disk_written_bytes_total":
		return strings.Contains(labels, "nvme0n1")
	case "connection_stats_connection_count":
		return strings.Contains(labels, `username="authenticator"`)
	}
	return true
}

// derive computes the percentage and unit-converted fields. Each is
// absent unless every raw input it needs is present.
func derive(raw map[string]float64) *models.HostMetrics {
	hm := &models.HostMetrics{Raw: raw}

	if total, ok := raw["mem_total"]; ok && total > 0 {
		if avail, ok := raw["mem_avail"]; ok {
			hm.MemoryUsedPct = ptr(round1((total - avail) / total * 100))
		}
	}
	if total, ok := raw["disk_total"]; ok && total > 0 {
		if free, ok := raw["disk_free"]; ok {
			hm.DiskUsedPct = ptr(round1((total - free) / total * 100))
		}
	}

	hm.MemoryFreeMB = asMB(raw, "mem_avail")
	hm.MemoryTotalMB = asMB(raw, "mem_total")
	hm.DiskFreeMB = asMB(raw, "disk_free")
	hm.DiskTotalMB = asMB(raw, "disk_total")

	hm.NetRxGB = asGB(raw, "net_rx")
	hm.NetTxGB = asGB(raw, "net_tx")
	hm.DiskReadGB = asGB(raw, "disk_read")
	hm.DiskWrittenGB = asGB(raw, "disk_written")

	hm.Users = asCount(raw, "users")
	hm.DBConnAuth = asCount(raw, "db_conn_auth")

	return hm
}

func asMB(raw map[string]float64, key string) *int64 {
	if v, ok := raw[key]; ok {
		return ptr(int64(v / 1024 / 1024))
	}
	return nil
}

func asGB(raw map[string]float64, key string) *float64 {
	if v, ok := raw[key]; ok {
		return ptr(round2(v / 1024 / 1024 / 1024))
	}
	return nil
}

func asCount(raw map[string]float64, key string) *int64 {
	if v, ok := raw[key]; ok {
		return ptr(int64(v))
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
