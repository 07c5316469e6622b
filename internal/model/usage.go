package model

import (
	"encoding/json"
	"time"
)

// Canonical service display names.
const (
	ServiceClaude  = "Claude"
	ServiceChatGPT = "ChatGPT"
	ServiceCopilot = "GitHub Copilot"
	ServiceGemini  = "Gemini"
)

// UsageWindow is one quota period for one metric.
type UsageWindow struct {
	Name        string
	Utilization float64
	// ResetsAt is nil when the provider did not report a reset instant.
	ResetsAt *time.Time
	// PeriodDuration of 0 means unlimited / no period.
	PeriodDuration time.Duration
}

type usageWindowJSON struct {
	Name             string     `json:"name"`
	Utilization      float64    `json:"utilization"`
	ResetsAt         *time.Time `json:"resetsAt,omitempty"`
	PeriodDurationMs int64      `json:"periodDurationMs"`
}

func (w UsageWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal(usageWindowJSON{
		Name:             w.Name,
		Utilization:      w.Utilization,
		ResetsAt:         w.ResetsAt,
		PeriodDurationMs: w.PeriodDuration.Milliseconds(),
	})
}

func (w *UsageWindow) UnmarshalJSON(data []byte) error {
	var raw usageWindowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*w = UsageWindow{
		Name:           raw.Name,
		Utilization:    raw.Utilization,
		ResetsAt:       raw.ResetsAt,
		PeriodDuration: time.Duration(raw.PeriodDurationMs) * time.Millisecond,
	}
	return nil
}

// UsageMetadata carries the hard rate-limit gate some providers report.
type UsageMetadata struct {
	Allowed      bool `json:"allowed"`
	LimitReached bool `json:"limitReached"`
}

// ServiceUsageData is one provider's usage snapshot. Window order is significant.
type ServiceUsageData struct {
	Service  string         `json:"service"`
	PlanType string         `json:"planType,omitempty"`
	Windows  []UsageWindow  `json:"windows"`
	Metadata *UsageMetadata `json:"metadata,omitempty"`
}

// Result pairs a provider with either its usage snapshot or the error that
// prevented one.
type Result struct {
	Provider  string
	Service   string
	Usage     *ServiceUsageData
	Err       error
	FetchedAt time.Time
}

// OK reports whether the result carries usage data.
func (r Result) OK() bool {
	return r.Err == nil && r.Usage != nil
}
