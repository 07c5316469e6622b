package usage

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yuxishi/aiusage/internal/model"
)

const copilotWindowName = "Monthly Premium Interactions"

// ParseCopilotUsage handles the payload whose reset is a full ISO timestamp.
func ParseCopilotUsage(resp CopilotUsageResponse) (model.ServiceUsageData, error) {
	window, err := copilotWindow(resp.QuotaSnapshots.PremiumInteractions, resp.QuotaResetDateUTC, parseISOResetDate)
	if err != nil {
		return model.ServiceUsageData{}, err
	}
	return model.ServiceUsageData{
		Service:  model.ServiceCopilot,
		PlanType: resp.CopilotPlan,
		Windows:  []model.UsageWindow{window},
	}, nil
}

// ParseGitHubCopilotUsage handles the payload whose reset is a YYYY-MM-DD date.
func ParseGitHubCopilotUsage(resp GitHubCopilotUsageResponse) (model.ServiceUsageData, error) {
	window, err := copilotWindow(resp.PremiumInteractions, resp.ResetDate, ParseResetDate)
	if err != nil {
		return model.ServiceUsageData{}, err
	}
	return model.ServiceUsageData{
		Service:  model.ServiceCopilot,
		PlanType: resp.Plan,
		Windows:  []model.UsageWindow{window},
	}, nil
}

func copilotWindow(q *CopilotQuota, rawReset string, parseReset func(string) (time.Time, error)) (model.UsageWindow, error) {
	window := model.UsageWindow{Name: copilotWindowName}
	if q == nil || q.Unlimited {
		return window, nil
	}

	reset, err := parseReset(rawReset)
	if err != nil {
		return model.UsageWindow{}, err
	}
	window.Utilization = CopilotUtilization(q.Entitlement, q.Remaining)
	window.ResetsAt = &reset
	window.PeriodDuration = CalculatePeriodDuration(reset)
	return window, nil
}

// CopilotUtilization is the consumed share of entitlement as a percentage,
// rounded to two decimals and clamped to [0, 100]. Zero entitlement yields 0.
func CopilotUtilization(entitlement, remaining float64) float64 {
	if entitlement == 0 {
		return 0
	}
	pct := (entitlement - remaining) / entitlement * 100
	return round2(math.Min(math.Max(pct, 0), 100))
}

func parseISOResetDate(raw string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reset date %q: %w", raw, err)
	}
	return parsed.UTC(), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
