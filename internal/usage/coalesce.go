package usage

import (
	"regexp"
	"strings"
)

var (
	labelFields       = []string{"window", "period", "name", "key"}
	utilizationFields = []string{"utilization", "percentage", "percent"}
	resetFields       = []string{"resets_at", "reset_at", "resetsAt", "resetAt"}

	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
)

type windowKind struct {
	aliases  []string
	tokens   []string
	excludes []string
}

var (
	fiveHourKind = windowKind{
		aliases:  []string{"five_hour", "five-hour", "fivehour", "5_hour", "5-hour", "5h"},
		tokens:   []string{"five", "5", "5hour", "5h"},
		excludes: []string{"opus", "oauth", "apps", "sonnet", "seven", "day", "weekly"},
	}
	sevenDayKind = windowKind{
		aliases:  []string{"seven_day", "seven-day", "sevenday", "7_day", "7-day", "7d", "weekly"},
		tokens:   []string{"seven", "7", "7day", "7d", "weekly"},
		excludes: []string{"opus", "oauth", "apps", "sonnet"},
	}
	sevenDayOpusKind = windowKind{
		aliases: []string{"seven_day_opus", "seven-day-opus", "7_day_opus", "7-day-opus", "opus"},
		tokens:  []string{"opus"},
	}
	sevenDayOAuthAppsKind = windowKind{
		aliases: []string{"seven_day_oauth_apps", "seven-day-oauth-apps", "7_day_oauth_apps", "oauth_apps"},
		tokens:  []string{"oauth"},
	}
)

type coalesceEntry struct {
	label  string
	tokens map[string]struct{}
	fields map[string]any
}

// CoalesceClaudeUsage reinterprets an array of loosely labelled window
// objects (decoded JSON) as a ClaudeUsageResponse. It returns false when data
// is not an array, when any element fails loose validation, or when the
// 5-hour, 7-day or 7-day Opus window cannot be found.
func CoalesceClaudeUsage(data any) (*ClaudeUsageResponse, bool) {
	items, ok := data.([]any)
	if !ok {
		return nil, false
	}

	entries := make([]coalesceEntry, 0, len(items))
	for _, item := range items {
		entry, ok := newCoalesceEntry(item)
		if !ok {
			return nil, false
		}
		entries = append(entries, entry)
	}

	fiveHour := matchWindow(entries, fiveHourKind)
	sevenDay := matchWindow(entries, sevenDayKind)
	sevenDayOpus := matchWindow(entries, sevenDayOpusKind)
	if fiveHour == nil || sevenDay == nil || sevenDayOpus == nil {
		return nil, false
	}

	return &ClaudeUsageResponse{
		FiveHour:          fiveHour,
		SevenDay:          sevenDay,
		SevenDayOpus:      sevenDayOpus,
		SevenDayOAuthApps: matchWindow(entries, sevenDayOAuthAppsKind),
	}, true
}

func newCoalesceEntry(item any) (coalesceEntry, bool) {
	fields, ok := item.(map[string]any)
	if !ok {
		return coalesceEntry{}, false
	}

	entry := coalesceEntry{fields: fields}
	for _, name := range labelFields {
		v, present := fields[name]
		if !present || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return coalesceEntry{}, false
		}
		if entry.label == "" {
			entry.label = strings.ToLower(strings.TrimSpace(s))
		}
	}
	for _, name := range utilizationFields {
		if v, present := fields[name]; present && v != nil {
			if _, ok := v.(float64); !ok {
				return coalesceEntry{}, false
			}
		}
	}
	for _, name := range resetFields {
		if v, present := fields[name]; present && v != nil {
			if _, ok := v.(string); !ok {
				return coalesceEntry{}, false
			}
		}
	}

	entry.tokens = make(map[string]struct{})
	for _, tok := range nonAlphanumeric.Split(entry.label, -1) {
		if tok != "" {
			entry.tokens[tok] = struct{}{}
		}
	}
	return entry, true
}

func (e coalesceEntry) matches(kind windowKind) bool {
	if e.label == "" {
		return false
	}
	for _, alias := range kind.aliases {
		if e.label == alias {
			return true
		}
	}
	for _, tok := range kind.excludes {
		if _, ok := e.tokens[tok]; ok {
			return false
		}
	}
	for _, tok := range kind.tokens {
		if _, ok := e.tokens[tok]; ok {
			return true
		}
	}
	return false
}

func matchWindow(entries []coalesceEntry, kind windowKind) *ClaudeWindow {
	for _, entry := range entries {
		if !entry.matches(kind) {
			continue
		}
		utilization := 0.0
		for _, name := range utilizationFields {
			if v, ok := entry.fields[name].(float64); ok {
				utilization = v
				break
			}
		}
		window := &ClaudeWindow{Utilization: &utilization}
		for _, name := range resetFields {
			if v, ok := entry.fields[name].(string); ok {
				window.ResetsAt = &v
				break
			}
		}
		return window
	}
	return nil
}
