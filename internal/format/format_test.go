package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuxishi/aiusage/internal/model"
)

var now = time.Date(2025, 10, 19, 12, 30, 0, 0, time.UTC)

func sampleResults() []model.Result {
	fiveHourReset := now.Add(150 * time.Minute)
	weeklyReset := now.Add(24 * time.Hour)
	return []model.Result{
		{
			Provider:  "codex",
			Service:   model.ServiceChatGPT,
			FetchedAt: now,
			Usage: &model.ServiceUsageData{
				Service:  model.ServiceChatGPT,
				PlanType: "plus",
				Windows: []model.UsageWindow{
					{Name: "Primary Window (~5 hours)", Utilization: 50, ResetsAt: &fiveHourReset, PeriodDuration: 5 * time.Hour},
					{Name: "Secondary Window (~7 days)", Utilization: 12.3, ResetsAt: &weeklyReset, PeriodDuration: 7 * 24 * time.Hour},
				},
				Metadata: &model.UsageMetadata{Allowed: true},
			},
		},
		{
			Provider: "copilot",
			Service:  model.ServiceCopilot,
			Usage: &model.ServiceUsageData{
				Service: model.ServiceCopilot,
				Windows: []model.UsageWindow{{Name: "Monthly Premium Interactions"}},
			},
		},
		{
			Provider: "gemini",
			Service:  model.ServiceGemini,
			Err:      model.NewAPIError(model.ServiceGemini, model.ErrorAuth, "authentication failed", nil),
		},
	}
}

func render(t *testing.T, f Format) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, f, sampleResults(), now))
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"text", "TSV", " json ", "prometheus"} {
		_, err := ParseFormat(in)
		assert.NoError(t, err, in)
	}
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, Text, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestRender_Text(t *testing.T) {
	out := render(t, Text)

	assert.Contains(t, out, "ChatGPT (plus)")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "12.3%")
	assert.Contains(t, out, "resets 2 hours from now")
	assert.Contains(t, out, "pace 1.00x (green)")
	assert.Contains(t, out, "no limit")
	assert.Contains(t, out, "error: Gemini: authentication failed")
	assert.NotContains(t, out, "limit reached")
}

func TestRender_TextLimitReached(t *testing.T) {
	results := sampleResults()[:1]
	results[0].Usage.Metadata = &model.UsageMetadata{Allowed: false, LimitReached: true}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Text, results, now))
	assert.Contains(t, buf.String(), "ChatGPT (plus) [limit reached]")
}

func TestRender_TSV(t *testing.T) {
	lines := strings.Split(strings.TrimRight(render(t, TSV), "\n"), "\n")

	require.Len(t, lines, 4)
	assert.Equal(t, TSVHeader, lines[0])
	assert.Equal(t,
		"ChatGPT\tplus\tPrimary Window (~5 hours)\t50\t2025-10-19T15:00:00Z\t18000000\t1.0000\tgreen",
		lines[1])
	assert.Equal(t, "GitHub Copilot\t\tMonthly Premium Interactions\t0\t\t0\t\t", lines[3])
	for _, line := range lines {
		assert.Len(t, strings.Split(line, "\t"), 8)
	}
}

func TestRender_JSON(t *testing.T) {
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(render(t, JSON)), &entries))
	require.Len(t, entries, 3)

	assert.Equal(t, "ChatGPT", entries[0]["service"])
	assert.Equal(t, "plus", entries[0]["planType"])
	assert.Equal(t, map[string]any{"allowed": true, "limitReached": false}, entries[0]["metadata"])
	windows := entries[0]["windows"].([]any)
	require.Len(t, windows, 2)
	first := windows[0].(map[string]any)
	assert.Equal(t, float64(18_000_000), first["periodDurationMs"])
	assert.Equal(t, "2025-10-19T15:00:00Z", first["resetsAt"])

	assert.NotContains(t, entries[1], "planType")
	assert.NotContains(t, entries[1], "error")

	assert.Equal(t, "Gemini", entries[2]["service"])
	assert.Equal(t, "auth", entries[2]["errorKind"])
	assert.Equal(t, []any{}, entries[2]["windows"])
}

func TestRender_Prometheus(t *testing.T) {
	out := render(t, Prometheus)

	assert.Contains(t, out, `aiusage_window_utilization_ratio{plan_type="plus",provider="codex",service="ChatGPT",window="Primary Window (~5 hours)"} 0.5`)
	assert.Contains(t, out, `aiusage_provider_up{provider="gemini",service="Gemini"} 0`)
}

func TestRender_UnknownFormat(t *testing.T) {
	assert.Error(t, Render(&bytes.Buffer{}, Format("xml"), nil, now))
}

func TestEntries_NoData(t *testing.T) {
	entries := Entries([]model.Result{{Provider: "claude"}})
	require.Len(t, entries, 1)
	assert.Equal(t, "claude", entries[0].Service)
	assert.Empty(t, entries[0].Error)
	assert.Nil(t, entries[0].FetchedAt)
}
