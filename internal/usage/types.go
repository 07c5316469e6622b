// Package usage normalizes provider usage payloads into the canonical model
// and derives reset periods and consumption pace from them.
//
// Every function in this package is pure. Inputs are expected to be schema
// validated already (see the validate tags, checked by the provider adapters).
package usage

// ClaudeUsageResponse is the named-window shape of the Claude OAuth usage
// endpoint.
type ClaudeUsageResponse struct {
	FiveHour          *ClaudeWindow `json:"five_hour" validate:"required"`
	SevenDay          *ClaudeWindow `json:"seven_day" validate:"required"`
	SevenDayOpus      *ClaudeWindow `json:"seven_day_opus" validate:"required"`
	SevenDayOAuthApps *ClaudeWindow `json:"seven_day_oauth_apps"`
}

type ClaudeWindow struct {
	Utilization *float64 `json:"utilization" validate:"required"`
	ResetsAt    *string  `json:"resets_at"`
}

// CodexUsageResponse is the ChatGPT/Codex "wham" usage payload.
type CodexUsageResponse struct {
	PlanType  string         `json:"plan_type"`
	RateLimit CodexRateLimit `json:"rate_limit"`
}

type CodexRateLimit struct {
	Allowed         bool         `json:"allowed"`
	LimitReached    bool         `json:"limit_reached"`
	PrimaryWindow   *CodexWindow `json:"primary_window" validate:"required"`
	SecondaryWindow *CodexWindow `json:"secondary_window"`
}

type CodexWindow struct {
	UsedPercent        *float64 `json:"used_percent" validate:"required"`
	LimitWindowSeconds int64    `json:"limit_window_seconds" validate:"gte=0"`
	ResetAt            *int64   `json:"reset_at"`
}

// CopilotQuota is a single Copilot quota snapshot.
type CopilotQuota struct {
	Entitlement float64 `json:"entitlement" validate:"gte=0"`
	Remaining   float64 `json:"remaining"`
	Unlimited   bool    `json:"unlimited"`
}

// CopilotUsageResponse is the copilot_internal/user payload, which reports
// the reset instant as a full ISO-8601 timestamp.
type CopilotUsageResponse struct {
	CopilotPlan       string                `json:"copilot_plan"`
	QuotaResetDateUTC string                `json:"quota_reset_date_utc"`
	QuotaSnapshots    CopilotQuotaSnapshots `json:"quota_snapshots"`
}

type CopilotQuotaSnapshots struct {
	PremiumInteractions *CopilotQuota `json:"premium_interactions" validate:"required"`
}

// GitHubCopilotUsageResponse is the billing-style payload that reports the
// reset as a bare YYYY-MM-DD date.
type GitHubCopilotUsageResponse struct {
	Plan                string        `json:"plan"`
	ResetDate           string        `json:"resetDate"`
	PremiumInteractions *CopilotQuota `json:"premiumInteractions" validate:"required"`
}

// GeminiQuotaResponse is the retrieveUserQuota payload.
type GeminiQuotaResponse struct {
	Buckets []GeminiQuotaBucket `json:"buckets" validate:"dive"`
}

type GeminiQuotaBucket struct {
	ModelID           string   `json:"modelId" validate:"required"`
	RemainingFraction *float64 `json:"remainingFraction" validate:"required,gte=0,lte=1"`
	ResetTime         string   `json:"resetTime" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	TokenType         string   `json:"tokenType"`
}
