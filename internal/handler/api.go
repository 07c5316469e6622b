package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yuxishi/aiusage/internal/format"
	"github.com/yuxishi/aiusage/internal/metrics"
	"github.com/yuxishi/aiusage/internal/model"
)

const errNoData = "No data available. Please refresh usage first."

// UsageSource is the poller as seen by the HTTP layer.
type UsageSource interface {
	Results() []model.Result
	Poll(ctx context.Context) []model.Result
	LastPoll() time.Time
	Errors() map[string]string
	Invalidate()
}

type Handler struct {
	source   UsageSource
	exporter *metrics.Exporter
	history  HistoryStore
	now      func() time.Time
}

// New builds the handler. history may be nil when snapshots are not stored.
func New(source UsageSource, exporter *metrics.Exporter, history HistoryStore) *Handler {
	return &Handler{
		source:   source,
		exporter: exporter,
		history:  history,
		now:      time.Now,
	}
}

// UsageResponse is the body of GET /api/usage.
type UsageResponse struct {
	Results   []format.Entry `json:"results"`
	Total     int            `json:"total"`
	FetchedAt *time.Time     `json:"fetched_at,omitempty"`
	FromCache bool           `json:"from_cache"`
}

func (h *Handler) Health(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"errors": h.source.Errors(),
	}
	if last := h.source.LastPoll(); !last.IsZero() {
		body["last_poll"] = last
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) Metrics(c *gin.Context) {
	h.exporter.Handler().ServeHTTP(c.Writer, c.Request)
}

func (h *Handler) GetUsage(c *gin.Context) {
	results := filterProviders(h.source.Results(), c.Query("provider"))
	last := h.source.LastPoll()
	if last.IsZero() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNoData})
		return
	}

	c.JSON(http.StatusOK, UsageResponse{
		Results:   format.Entries(results),
		Total:     len(results),
		FetchedAt: &last,
		FromCache: true,
	})
}

func (h *Handler) Refresh(c *gin.Context) {
	h.source.Invalidate()
	results := h.source.Poll(c.Request.Context())
	last := h.source.LastPoll()

	c.JSON(http.StatusOK, UsageResponse{
		Results:   format.Entries(results),
		Total:     len(results),
		FetchedAt: &last,
		FromCache: false,
	})
}

// filterProviders keeps results whose provider or service name matches one
// of the comma-separated names in filter.
func filterProviders(results []model.Result, filter string) []model.Result {
	if strings.TrimSpace(filter) == "" {
		return results
	}
	wanted := make(map[string]bool)
	for _, name := range strings.Split(filter, ",") {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			wanted[name] = true
		}
	}

	filtered := make([]model.Result, 0, len(results))
	for _, r := range results {
		if wanted[strings.ToLower(r.Provider)] || wanted[strings.ToLower(r.Service)] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
