// Package format renders fetch results for the terminal and for export.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/yuxishi/aiusage/internal/metrics"
	"github.com/yuxishi/aiusage/internal/model"
	"github.com/yuxishi/aiusage/internal/usage"
)

type Format string

const (
	Text       Format = "text"
	TSV        Format = "tsv"
	JSON       Format = "json"
	Prometheus Format = "prometheus"
)

// TSVHeader is the first line of TSV output.
const TSVHeader = "service\tplan_type\twindow\tutilization\tresets_at\tperiod_ms\trate\tlevel"

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Text, TSV, JSON, Prometheus:
		return f, nil
	case "":
		return Text, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, tsv, json or prometheus)", s)
}

// Render writes results to w. now anchors relative reset times and rates.
func Render(w io.Writer, f Format, results []model.Result, now time.Time) error {
	switch f {
	case Text:
		return renderText(w, results, now)
	case TSV:
		return renderTSV(w, results, now)
	case JSON:
		return renderJSON(w, results)
	case Prometheus:
		e := metrics.NewExporter()
		e.Update(results, now)
		return e.WriteText(w)
	}
	return fmt.Errorf("unknown output format %q", f)
}

func serviceOf(r model.Result) string {
	if r.Usage != nil && r.Usage.Service != "" {
		return r.Usage.Service
	}
	if r.Service != "" {
		return r.Service
	}
	return r.Provider
}

func renderText(w io.Writer, results []model.Result, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		if !r.OK() {
			if r.Err == nil {
				fmt.Fprintf(tw, "%s\tno data\n", serviceOf(r))
			} else {
				fmt.Fprintf(tw, "%s\terror: %v\n", serviceOf(r), r.Err)
			}
			continue
		}

		header := serviceOf(r)
		if r.Usage.PlanType != "" {
			header += " (" + r.Usage.PlanType + ")"
		}
		if md := r.Usage.Metadata; md != nil && (md.LimitReached || !md.Allowed) {
			header += " [limit reached]"
		}
		fmt.Fprintln(tw, header)

		if len(r.Usage.Windows) == 0 {
			fmt.Fprintln(tw, "  no usage windows reported")
			continue
		}
		for _, win := range r.Usage.Windows {
			fmt.Fprintf(tw, "  %s\t%.1f%%\t%s\t%s\n", win.Name, win.Utilization, describeReset(win, now), describeRate(win, now))
		}
	}
	return tw.Flush()
}

func describeReset(w model.UsageWindow, now time.Time) string {
	if w.ResetsAt == nil {
		if w.PeriodDuration == 0 {
			return "no limit"
		}
		return "reset unknown"
	}
	return "resets " + humanize.RelTime(*w.ResetsAt, now, "ago", "from now")
}

func describeRate(w model.UsageWindow, now time.Time) string {
	rate, ok := usage.WindowRate(w, now)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("pace %.2fx (%s)", rate, usage.ClassifyUsageRate(rate))
}

func renderTSV(w io.Writer, results []model.Result, now time.Time) error {
	if _, err := fmt.Fprintln(w, TSVHeader); err != nil {
		return err
	}
	for _, r := range results {
		if !r.OK() {
			continue
		}
		for _, win := range r.Usage.Windows {
			resets := ""
			if win.ResetsAt != nil {
				resets = win.ResetsAt.UTC().Format(time.RFC3339)
			}
			rate, level := "", ""
			if v, ok := usage.WindowRate(win, now); ok {
				rate = strconv.FormatFloat(v, 'f', 4, 64)
				level = string(usage.ClassifyUsageRate(v))
			}
			fields := []string{
				tsvField(serviceOf(r)),
				tsvField(r.Usage.PlanType),
				tsvField(win.Name),
				strconv.FormatFloat(win.Utilization, 'f', -1, 64),
				resets,
				strconv.FormatInt(win.PeriodDuration.Milliseconds(), 10),
				rate,
				level,
			}
			if _, err := fmt.Fprintln(w, strings.Join(fields, "\t")); err != nil {
				return err
			}
		}
	}
	return nil
}

func tsvField(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}

// Entry is the JSON export shape of one result.
type Entry struct {
	Provider  string               `json:"provider"`
	Service   string               `json:"service"`
	PlanType  string               `json:"planType,omitempty"`
	Windows   []model.UsageWindow  `json:"windows"`
	Metadata  *model.UsageMetadata `json:"metadata,omitempty"`
	Error     string               `json:"error,omitempty"`
	ErrorKind model.ErrorKind      `json:"errorKind,omitempty"`
	FetchedAt *time.Time           `json:"fetchedAt,omitempty"`
}

// Entries converts results to their JSON export shape.
func Entries(results []model.Result) []Entry {
	out := make([]Entry, 0, len(results))
	for _, r := range results {
		e := Entry{
			Provider: r.Provider,
			Service:  serviceOf(r),
			Windows:  []model.UsageWindow{},
		}
		if !r.FetchedAt.IsZero() {
			fetched := r.FetchedAt
			e.FetchedAt = &fetched
		}
		if r.OK() {
			e.PlanType = r.Usage.PlanType
			e.Metadata = r.Usage.Metadata
			if r.Usage.Windows != nil {
				e.Windows = r.Usage.Windows
			}
		} else if r.Err != nil {
			e.Error = r.Err.Error()
			e.ErrorKind = model.KindOf(r.Err)
		}
		out = append(out, e)
	}
	return out
}

func renderJSON(w io.Writer, results []model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Entries(results))
}
