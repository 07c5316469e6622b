package usage

import (
	"strings"
	"time"

	"github.com/yuxishi/aiusage/internal/model"
)

const (
	fiveHourPeriod = 5 * time.Hour
	sevenDayPeriod = 7 * 24 * time.Hour
)

// ParseClaudeUsage maps the Claude usage windows onto the canonical model.
// Periods are fixed per window. The OAuth apps window is only emitted when
// present and sits between the 7-day and 7-day Opus windows.
func ParseClaudeUsage(resp ClaudeUsageResponse) model.ServiceUsageData {
	windows := make([]model.UsageWindow, 0, 4)
	windows = append(windows,
		claudeWindow("5-Hour Usage", resp.FiveHour, fiveHourPeriod),
		claudeWindow("7-Day Usage", resp.SevenDay, sevenDayPeriod),
	)
	if resp.SevenDayOAuthApps != nil {
		windows = append(windows, claudeWindow("7-Day OAuth Apps Usage", resp.SevenDayOAuthApps, sevenDayPeriod))
	}
	windows = append(windows, claudeWindow("7-Day Opus Usage", resp.SevenDayOpus, sevenDayPeriod))

	return model.ServiceUsageData{
		Service: model.ServiceClaude,
		Windows: windows,
	}
}

func claudeWindow(name string, w *ClaudeWindow, period time.Duration) model.UsageWindow {
	out := model.UsageWindow{Name: name, PeriodDuration: period}
	if w == nil {
		return out
	}
	if w.Utilization != nil {
		out.Utilization = *w.Utilization
	}
	if w.ResetsAt != nil {
		out.ResetsAt = parseTimestamp(*w.ResetsAt)
	}
	return out
}

// parseTimestamp returns nil for empty or unparseable input.
func parseTimestamp(raw string) *time.Time {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}
