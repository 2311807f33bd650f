package exporter

import (
	"fmt"
	"time"

	"covidcli/pkg/contracts/domain"
)

// formatFloat formats a float64 value for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	// Always format with exactly 2 decimal places for consistency
	// This ensures values like 13.4 appear as 13.40 in CSV
	return fmt.Sprintf("%.2f", f)
}

// formatCount formats a whole-number metric (case, death, and dose counts
// carry no meaningful fraction).
func formatCount(f float64) string {
	return fmt.Sprintf("%.0f", f)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return fmt.Sprintf("%d", i)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// formatOptional renders an optional rate with 2 decimal places. Absent
// values stay empty: an unreported metric must never round-trip as zero.
func formatOptional(p *float64) string {
	if p == nil {
		return ""
	}
	return formatFloat(*p)
}

// formatOptionalCount renders an optional whole-number metric, empty when
// absent.
func formatOptionalCount(p *float64) string {
	if p == nil {
		return ""
	}
	return formatCount(*p)
}

// formatDate renders a date in the canonical record layout.
func formatDate(t time.Time) string {
	return t.Format(domain.DateFormat)
}
