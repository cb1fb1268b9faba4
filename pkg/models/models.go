package models

// Target is one monitored ECS service. Targets are static configuration
// loaded once at boot; slice order drives report order.
type Target struct {
	Name         string `koanf:"name" json:"name"`
	Cluster      string `koanf:"cluster" json:"cluster"`
	Service      string `koanf:"service" json:"service"`
	Region       string `koanf:"region" json:"region"`
	LoadBalancer string `koanf:"load_balancer" json:"load_balancer,omitempty"`
	TargetGroup  string `koanf:"target_group" json:"target_group,omitempty"`
}

// HasALB reports whether the target carries both dimensions needed for
// the request-count query.
func (t Target) HasALB() bool {
	return t.LoadBalancer != "" && t.TargetGroup != ""
}

// Utilization summarizes one CloudWatch percentage metric over the
// report window. Values are rounded to 2 decimals at fetch time.
type Utilization struct {
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
}

// RequestCount carries either a total or an error, never both. A nil
// *RequestCount means no datapoints were returned, which is not an
// error.
type RequestCount struct {
	Total int64  `json:"total"`
	Err   string `json:"error,omitempty"`
}

// ServiceMetrics is the per-target row of the report. Every metric
// field is independently nullable; nil renders as a placeholder.
type ServiceMetrics struct {
	Name     string        `json:"name"`
	Cluster  string        `json:"cluster"`
	Service  string        `json:"service"`
	Region   string        `json:"region"`
	CPU      *Utilization  `json:"cpu"`
	Mem      *Utilization  `json:"mem"`
	Requests *RequestCount `json:"requests"`
}

// HostMetrics holds the parsed Supabase host metrics for one instance.
// Raw keeps the accepted exposition values under their internal keys;
// the rest are derived, each absent when its inputs were absent.
type HostMetrics struct {
	Raw           map[string]float64 `json:"raw"`
	MemoryUsedPct *float64           `json:"memory_used_pct"`
	DiskUsedPct   *float64           `json:"disk_used_pct"`
	MemoryFreeMB  *int64             `json:"memory_free_mb"`
	MemoryTotalMB *int64             `json:"memory_total_mb"`
	DiskFreeMB    *int64             `json:"disk_free_mb"`
	DiskTotalMB   *int64             `json:"disk_total_mb"`
	NetRxGB       *float64           `json:"net_rx_gb"`
	NetTxGB       *float64           `json:"net_tx_gb"`
	DiskReadGB    *float64           `json:"disk_read_gb"`
	DiskWrittenGB *float64           `json:"disk_written_gb"`
	Users         *int64             `json:"users"`
	DBConnAuth    *int64             `json:"db_conn_auth"`
}

// HostResult pairs a labelled Supabase instance with its parsed
// metrics, or with the error that prevented them.
type HostResult struct {
	Label  string       `json:"label"`
	Parsed *HostMetrics `json:"parsed"`
	Err    string       `json:"error,omitempty"`
}

// DeliveryResult describes the outcome of the webhook post. It is
// always a value, never a raised error.
type DeliveryResult struct {
	Posted bool   `json:"posted"`
	Status int    `json:"status,omitempty"`
	Reason string `json:"reason,omitempty"`
	Err    string `json:"error,omitempty"`
}

// JobBody is the diagnostic payload of one invocation.
type JobBody struct {
	Message  string           `json:"message"`
	Slack    DeliveryResult   `json:"slack"`
	Services []ServiceMetrics `json:"services"`
	Supabase []HostResult     `json:"supabase,omitempty"`
}

// JobResult is the structured outcome of one invocation.
type JobResult struct {
	StatusCode int     `json:"statusCode"`
	Body       JobBody `json:"body"`
}
