package utils

import (
	"fmt"
	"time"
)

// FormatSize renders a byte count the way the upload report shows it:
// plain bytes below 1 KiB, then one decimal of KB or MB.
func FormatSize(n int64) string {
	const (
		kb = 1024
		mb = 1024 * 1024
	)
	switch {
	case n < kb:
		return fmt.Sprintf("%d B", n)
	case n < mb:
		return fmt.Sprintf("%.1f KB", float64(n)/kb)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	}
}

// FormatSince returns a human-readable string representing the time elapsed
// since the given timestamp.
func FormatSince(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}

	const (
		day   = 24 * time.Hour
		week  = 7 * day
		month = 30 * day
		year  = 365 * day
	)

	since := time.Since(t)

	// Handle future timestamps gracefully
	if since < 0 {
		return "0s ago"
	}

	if since < time.Minute {
		return fmt.Sprintf("%ds ago", int(since.Seconds()))
	}
	if since < time.Hour {
		return fmt.Sprintf("%dm ago", int(since.Minutes()))
	}
	if since < day {
		return fmt.Sprintf("%dh ago", int(since.Hours()))
	}
	if since < week {
		return fmt.Sprintf("%dd ago", int(since.Hours()/24))
	}
	if since < month {
		return fmt.Sprintf("%dw ago", int(since.Hours()/(24*7)))
	}
	if since < year {
		return fmt.Sprintf("%dmo ago", int(since.Hours()/(24*30)))
	}

	return fmt.Sprintf("%dy ago", int(since.Hours()/(24*365)))
}

// Truncate shortens s to at most max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
