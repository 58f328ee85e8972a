package execctx

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/cannectors/wrangler/internal/logger"
	"github.com/cannectors/wrangler/pkg/wrangler"
)

// Metric names exported by the runtime.
const (
	MetricDirectiveEvents = "wrangler_directive_events_total"
	MetricDirectiveGauge  = "wrangler_directive_gauge"
	MetricRows            = "wrangler_rows_total"
	MetricRuns            = "wrangler_runs_total"
	MetricRunDuration     = "wrangler_run_duration_seconds"
)

// Metrics is a Prometheus backed directive.Metrics. Directive metric names
// such as "parse-as-currency.parsed" are carried as the "metric" label, so
// they need no sanitizing. Metrics is safe for concurrent use.
type Metrics struct {
	reg *prometheus.Registry

	events   *prometheus.CounterVec
	gauges   *prometheus.GaugeVec
	rows     *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration prometheus.Summary
}

// NewMetrics creates a registry whose series carry a constant pipeline label.
func NewMetrics(pipeline string) (*Metrics, error) {
	constLabels := prometheus.Labels{}
	if pipeline != "" {
		constLabels["pipeline"] = pipeline
	}

	m := &Metrics{
		reg: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        MetricDirectiveEvents,
			Help:        "Counters emitted by directives, partitioned by metric name.",
			ConstLabels: constLabels,
		}, []string{"metric"}),
		gauges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        MetricDirectiveGauge,
			Help:        "Gauges emitted by directives, partitioned by metric name.",
			ConstLabels: constLabels,
		}, []string{"metric"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        MetricRows,
			Help:        "Row counts per kind (in, out, errored, filtered).",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        MetricRuns,
			Help:        "Pipeline runs partitioned by status.",
			ConstLabels: constLabels,
		}, []string{"status"}),
		duration: prometheus.NewSummary(prometheus.SummaryOpts{
			Name:        MetricRunDuration,
			Help:        "Duration of pipeline runs in seconds.",
			ConstLabels: constLabels,
			Objectives:  map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}),
	}

	for _, c := range []prometheus.Collector{m.events, m.gauges, m.rows, m.runs, m.duration} {
		if err := m.reg.Register(c); err != nil {
			return nil, fmt.Errorf("execctx: register metrics: %w", err)
		}
	}
	return m, nil
}

// Count implements directive.Metrics. Negative deltas are dropped since
// counters only go up.
func (m *Metrics) Count(name string, delta int) {
	if delta < 0 {
		logger.Debug("ignoring negative counter delta",
			slog.String("metric", name),
			slog.Int("delta", delta),
		)
		return
	}
	m.events.WithLabelValues(name).Add(float64(delta))
}

// Gauge implements directive.Metrics.
func (m *Metrics) Gauge(name string, value float64) {
	m.gauges.WithLabelValues(name).Set(value)
}

// RecordRun adds the counts of a finished run.
func (m *Metrics) RecordRun(res *wrangler.ExecutionResult) {
	if res == nil {
		return
	}
	m.rows.WithLabelValues("in").Add(float64(res.RowsIn))
	m.rows.WithLabelValues("out").Add(float64(res.RowsOut))
	m.rows.WithLabelValues("errored").Add(float64(res.RowsErrored))
	m.rows.WithLabelValues("filtered").Add(float64(res.RowsFiltered))
	m.runs.WithLabelValues(res.Status).Inc()
	m.duration.Observe(res.Duration().Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// WriteFile writes the registry in the Prometheus text format, for the node
// exporter textfile collector.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("execctx: write metrics file: %w", err)
	}
	return nil
}

// Push sends the registry to a Prometheus Pushgateway.
func (m *Metrics) Push(gatewayURL, job string) error {
	if gatewayURL == "" {
		return fmt.Errorf("execctx: gateway URL is required")
	}
	if job == "" {
		job = "wrangler"
	}
	if err := push.New(gatewayURL, job).Gatherer(m.reg).Push(); err != nil {
		return fmt.Errorf("execctx: push metrics: %w", err)
	}
	return nil
}
