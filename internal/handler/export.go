package handler

import (
	"bytes"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yuxishi/aiusage/internal/format"
	"github.com/yuxishi/aiusage/internal/model"
	"github.com/yuxishi/aiusage/internal/usage"
)

func (h *Handler) exportResults(c *gin.Context) ([]model.Result, bool) {
	if h.source.LastPoll().IsZero() {
		return nil, false
	}
	return filterProviders(h.source.Results(), c.Query("provider")), true
}

func exportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("aiusage-%s.%s", now.Format("2006-01-02"), ext)
}

func (h *Handler) ExportJSON(c *gin.Context) {
	results, ok := h.exportResults(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errNoData})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+exportFilename(h.now(), "json"))
	c.JSON(http.StatusOK, format.Entries(results))
}

func (h *Handler) ExportTSV(c *gin.Context) {
	results, ok := h.exportResults(c)
	if !ok {
		c.String(http.StatusBadRequest, errNoData)
		return
	}

	var buf bytes.Buffer
	if err := format.Render(&buf, format.TSV, results, h.now()); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+exportFilename(h.now(), "tsv"))
	c.Data(http.StatusOK, "text/tab-separated-values; charset=utf-8", buf.Bytes())
}

func (h *Handler) ExportHTML(c *gin.Context) {
	results, ok := h.exportResults(c)
	if !ok {
		c.String(http.StatusBadRequest, errNoData)
		return
	}

	now := h.now()
	c.Header("Content-Disposition", "attachment; filename="+exportFilename(now, "html"))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(generateHTMLReport(results, now)))
}

func generateHTMLReport(results []model.Result, now time.Time) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>AI Usage Report</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 20px; }
        table { border-collapse: collapse; width: 100%; margin-top: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #2d3748; color: white; }
        tr:nth-child(even) { background-color: #f2f2f2; }
        .timestamp { color: #666; font-size: 0.9em; }
        .green { color: #2f855a; } .yellow { color: #b7791f; } .red { color: #c53030; }
        .error { color: #c53030; }
    </style>
</head>
<body>
    <h1>AI Usage Report</h1>
    <p class="timestamp">Generated: ` + now.UTC().Format("2006-01-02 15:04:05") + ` UTC</p>
    <table>
        <thead>
            <tr>
                <th>Service</th>
                <th>Plan</th>
                <th>Window</th>
                <th>Utilization</th>
                <th>Resets At</th>
                <th>Pace</th>
            </tr>
        </thead>
        <tbody>`)

	for _, r := range results {
		if !r.OK() {
			msg := "no data"
			if r.Err != nil {
				msg = r.Err.Error()
			}
			fmt.Fprintf(&b, `
            <tr>
                <td>%s</td>
                <td colspan="5" class="error">%s</td>
            </tr>`, html.EscapeString(r.Service), html.EscapeString(msg))
			continue
		}
		for _, w := range r.Usage.Windows {
			resets := "-"
			if w.ResetsAt != nil {
				resets = w.ResetsAt.UTC().Format("2006-01-02 15:04 MST")
			}
			pace := "-"
			class := ""
			if rate, ok := usage.WindowRate(w, now); ok {
				level := usage.ClassifyUsageRate(rate)
				pace = fmt.Sprintf("%.2fx", rate)
				class = string(level)
			}
			fmt.Fprintf(&b, `
            <tr>
                <td>%s</td>
                <td>%s</td>
                <td>%s</td>
                <td>%.1f%%</td>
                <td>%s</td>
                <td class="%s">%s</td>
            </tr>`,
				html.EscapeString(r.Usage.Service),
				html.EscapeString(r.Usage.PlanType),
				html.EscapeString(w.Name),
				w.Utilization,
				resets,
				class,
				pace)
		}
	}

	b.WriteString(`
        </tbody>
    </table>
</body>
</html>`)
	return b.String()
}
