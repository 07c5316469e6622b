package usage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuxishi/aiusage/internal/model"
)

func TestParseCodexUsage(t *testing.T) {
	raw := `{
		"plan_type": "plus",
		"rate_limit": {
			"allowed": true,
			"limit_reached": false,
			"primary_window": {"used_percent": 37, "limit_window_seconds": 18000, "reset_at": 1760886000},
			"secondary_window": {"used_percent": 12.5, "limit_window_seconds": 604800, "reset_at": 1761400000}
		}
	}`
	var resp CodexUsageResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	got := ParseCodexUsage(resp)

	assert.Equal(t, model.ServiceChatGPT, got.Service)
	assert.Equal(t, "plus", got.PlanType)
	require.NotNil(t, got.Metadata)
	assert.True(t, got.Metadata.Allowed)
	assert.False(t, got.Metadata.LimitReached)

	require.Len(t, got.Windows, 2)
	primary, secondary := got.Windows[0], got.Windows[1]

	assert.Equal(t, "Primary Window (~5 hours)", primary.Name)
	assert.Equal(t, 37.0, primary.Utilization)
	assert.Equal(t, 5*time.Hour, primary.PeriodDuration)
	require.NotNil(t, primary.ResetsAt)
	assert.Equal(t, int64(1760886000000), primary.ResetsAt.UnixMilli())

	assert.Equal(t, "Secondary Window (~7 days)", secondary.Name)
	assert.Equal(t, 12.5, secondary.Utilization)
	assert.Equal(t, int64(604_800_000), secondary.PeriodDuration.Milliseconds())
}

func TestParseCodexUsage_LimitReachedWithoutSecondary(t *testing.T) {
	used := 100.0
	resp := CodexUsageResponse{
		RateLimit: CodexRateLimit{
			Allowed:       false,
			LimitReached:  true,
			PrimaryWindow: &CodexWindow{UsedPercent: &used, LimitWindowSeconds: 18000},
		},
	}

	got := ParseCodexUsage(resp)

	require.Len(t, got.Windows, 1)
	assert.Nil(t, got.Windows[0].ResetsAt)
	assert.Equal(t, &model.UsageMetadata{Allowed: false, LimitReached: true}, got.Metadata)
}
