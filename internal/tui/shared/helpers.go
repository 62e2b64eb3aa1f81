package shared

import (
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// Formatting Functions
// These are used by multiple screens for consistent display
// ============================================================================

// FormatDuration formats duration into human-readable format (e.g., "2m 30s")
func FormatDuration(duration time.Duration) string {
	duration = duration.Round(time.Second)
	hours := duration / time.Hour
	duration %= time.Hour
	minutes := duration / time.Minute
	duration %= time.Minute
	seconds := duration / time.Second

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	return fmt.Sprintf("%ds", seconds)
}

// FormatLastSync describes when a job last finished relative to now.
func FormatLastSync(lastSync *time.Time, now time.Time) string {
	if lastSync == nil {
		return "never"
	}

	ago := now.Sub(*lastSync)
	if ago < time.Minute {
		return "just now"
	}

	if ago > 7*24*time.Hour {
		return lastSync.Local().Format("2006-01-02")
	}

	return FormatDuration(ago.Truncate(time.Minute)) + " ago"
}

// TruncateLeft keeps the tail of s so it fits in width cells, marking the
// cut with an ellipsis. Paths read better with their end visible.
func TruncateLeft(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}

	if width == 1 {
		return "…"
	}

	return "…" + string(runes[len(runes)-width+1:])
}

// SanitizeLine strips carriage returns and control characters a raw rsync
// chunk may carry so the log renders one line per entry.
func SanitizeLine(s string) string {
	s = strings.TrimRight(s, "\r\n")
	if i := strings.LastIndexByte(s, '\r'); i >= 0 {
		s = s[i+1:]
	}

	return strings.Map(func(r rune) rune {
		if r == '\t' || r >= ' ' {
			return r
		}

		return -1
	}, s)
}
