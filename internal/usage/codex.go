package usage

import (
	"time"

	"github.com/yuxishi/aiusage/internal/model"
)

const (
	codexPrimaryName   = "Primary Window (~5 hours)"
	codexSecondaryName = "Secondary Window (~7 days)"
)

// ParseCodexUsage maps the ChatGPT primary/secondary rate-limit windows. Each
// window carries its own length and reset instant.
func ParseCodexUsage(resp CodexUsageResponse) model.ServiceUsageData {
	var windows []model.UsageWindow
	if w := resp.RateLimit.PrimaryWindow; w != nil {
		windows = append(windows, codexWindow(codexPrimaryName, w))
	}
	if w := resp.RateLimit.SecondaryWindow; w != nil {
		windows = append(windows, codexWindow(codexSecondaryName, w))
	}

	return model.ServiceUsageData{
		Service:  model.ServiceChatGPT,
		PlanType: resp.PlanType,
		Windows:  windows,
		Metadata: &model.UsageMetadata{
			Allowed:      resp.RateLimit.Allowed,
			LimitReached: resp.RateLimit.LimitReached,
		},
	}
}

func codexWindow(name string, w *CodexWindow) model.UsageWindow {
	out := model.UsageWindow{
		Name:           name,
		PeriodDuration: time.Duration(w.LimitWindowSeconds) * time.Second,
	}
	if w.UsedPercent != nil {
		out.Utilization = *w.UsedPercent
	}
	if w.ResetAt != nil {
		reset := time.Unix(*w.ResetAt, 0).UTC()
		out.ResetsAt = &reset
	}
	return out
}
