package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yuxishi/aiusage/internal/logger"
	"github.com/yuxishi/aiusage/internal/store"
)

const defaultHistoryWindow = 24 * time.Hour

// HistoryStore is the snapshot store as seen by the HTTP layer.
type HistoryStore interface {
	LatestSnapshots(ctx context.Context) ([]store.Snapshot, error)
	History(ctx context.Context, provider string, since time.Time) ([]store.Snapshot, error)
}

// HistoryEntry is one stored window in history responses.
type HistoryEntry struct {
	CapturedAt  time.Time  `json:"captured_at"`
	Provider    string     `json:"provider"`
	Service     string     `json:"service"`
	PlanType    string     `json:"plan_type,omitempty"`
	Window      string     `json:"window"`
	Utilization float64    `json:"utilization"`
	ResetsAt    *time.Time `json:"resets_at,omitempty"`
	PeriodMs    int64      `json:"period_ms"`
}

type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
	Total   int            `json:"total"`
	Since   *time.Time     `json:"since,omitempty"`
}

// GetHistory serves GET /api/history?provider=claude&since=<RFC3339|duration>.
func (h *Handler) GetHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Snapshot history is disabled"})
		return
	}

	provider := strings.ToLower(strings.TrimSpace(c.Query("provider")))
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provider is required"})
		return
	}
	since, err := parseSince(c.Query("since"), h.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snaps, err := h.history.History(c.Request.Context(), provider, since)
	if err != nil {
		logger.Error("failed to read history", "provider", provider, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read history"})
		return
	}

	entries := historyEntries(snaps)
	c.JSON(http.StatusOK, HistoryResponse{
		Entries: entries,
		Total:   len(entries),
		Since:   &since,
	})
}

// GetLatestHistory serves the most recent stored capture of every provider.
func (h *Handler) GetLatestHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Snapshot history is disabled"})
		return
	}

	snaps, err := h.history.LatestSnapshots(c.Request.Context())
	if err != nil {
		logger.Error("failed to read latest snapshots", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read history"})
		return
	}

	entries := historyEntries(snaps)
	c.JSON(http.StatusOK, HistoryResponse{
		Entries: entries,
		Total:   len(entries),
	})
}

// parseSince accepts an RFC3339 timestamp or a duration counted back from
// now. Empty means the last 24 hours.
func parseSince(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Add(-defaultHistoryWindow).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return time.Time{}, fmt.Errorf("invalid since %q: want an RFC3339 time or a duration such as 24h", raw)
	}
	return now.Add(-d).UTC(), nil
}

func historyEntries(snaps []store.Snapshot) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(snaps))
	for _, s := range snaps {
		entries = append(entries, HistoryEntry{
			CapturedAt:  s.CapturedAt,
			Provider:    s.Provider,
			Service:     s.Service,
			PlanType:    s.PlanType,
			Window:      s.Window,
			Utilization: s.Utilization,
			ResetsAt:    s.ResetsAt,
			PeriodMs:    s.Period.Milliseconds(),
		})
	}
	return entries
}
