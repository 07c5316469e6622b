// Package metrics exposes normalized usage as Prometheus gauges.
package metrics

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/yuxishi/aiusage/internal/model"
	"github.com/yuxishi/aiusage/internal/usage"
)

const namespace = "aiusage"

var windowLabels = []string{"provider", "service", "window", "plan_type"}

// Exporter owns a private registry so repeated construction (tests, CLI
// one-shots) never collides with the global one.
type Exporter struct {
	mu       sync.Mutex
	registry *prometheus.Registry

	Utilization *prometheus.GaugeVec
	UsageRate   *prometheus.GaugeVec
	ResetsAt    *prometheus.GaugeVec
	PeriodSecs  *prometheus.GaugeVec
	ProviderUp  *prometheus.GaugeVec
	FetchErrors *prometheus.CounterVec
	LastPoll    prometheus.Gauge
}

func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		Utilization: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "window_utilization_ratio",
				Help:      "Share of the window quota consumed (0-1)",
			},
			windowLabels,
		),
		UsageRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "window_usage_rate",
				Help:      "Consumption pace relative to elapsed window time (1 = on pace)",
			},
			windowLabels,
		),
		ResetsAt: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "window_resets_at_seconds",
				Help:      "Unix time at which the window resets",
			},
			windowLabels,
		),
		PeriodSecs: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "window_period_seconds",
				Help:      "Length of the window period",
			},
			windowLabels,
		),
		ProviderUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "provider_up",
				Help:      "Whether the last fetch from the provider succeeded",
			},
			[]string{"provider", "service"},
		),
		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_errors_total",
				Help:      "Failed provider fetches by error kind",
			},
			[]string{"provider", "kind"},
		),
		LastPoll: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_poll_timestamp_seconds",
			Help:      "Unix time of the last completed poll",
		}),
	}

	e.registry.MustRegister(
		e.Utilization,
		e.UsageRate,
		e.ResetsAt,
		e.PeriodSecs,
		e.ProviderUp,
		e.FetchErrors,
		e.LastPoll,
	)
	return e
}

// Update replaces every gauge with the values in results. Windows that
// disappeared since the previous update are dropped.
func (e *Exporter) Update(results []model.Result, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Utilization.Reset()
	e.UsageRate.Reset()
	e.ResetsAt.Reset()
	e.PeriodSecs.Reset()
	e.ProviderUp.Reset()

	for _, r := range results {
		service := r.Service
		if r.Usage != nil && r.Usage.Service != "" {
			service = r.Usage.Service
		}

		if !r.OK() {
			e.ProviderUp.WithLabelValues(r.Provider, service).Set(0)
			kind := string(model.KindOf(r.Err))
			if kind == "" {
				kind = "unknown"
			}
			e.FetchErrors.WithLabelValues(r.Provider, kind).Inc()
			continue
		}

		e.ProviderUp.WithLabelValues(r.Provider, service).Set(1)
		for _, w := range r.Usage.Windows {
			labels := []string{r.Provider, service, w.Name, r.Usage.PlanType}
			e.Utilization.WithLabelValues(labels...).Set(w.Utilization / 100)
			e.PeriodSecs.WithLabelValues(labels...).Set(w.PeriodDuration.Seconds())
			if w.ResetsAt != nil {
				e.ResetsAt.WithLabelValues(labels...).Set(float64(w.ResetsAt.Unix()))
			}
			if rate, ok := usage.WindowRate(w, now); ok {
				e.UsageRate.WithLabelValues(labels...).Set(rate)
			}
		}
	}
	e.LastPoll.Set(float64(now.Unix()))
}

// Handler serves the exporter registry.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests and custom encoders.
func (e *Exporter) Gatherer() prometheus.Gatherer {
	return e.registry
}

// WriteText writes the registry in the Prometheus text exposition format.
func (e *Exporter) WriteText(w io.Writer) error {
	families, err := e.Gatherer().Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
