// Package window computes the trailing report window. Every query in
// one invocation uses the same range so all columns describe the same
// 24 hours.
package window

import "time"

// Range is a half-open [Start, End) time range.
type Range struct {
	Start time.Time
	End   time.Time
}

// Trailing24h returns the 24-hour range ending at now, end-aligned to
// the whole minute.
func Trailing24h(now time.Time) Range {
	end := now.Truncate(time.Minute)
	return Range{
		Start: end.Add(-24 * time.Hour),
		End:   end,
	}
}
