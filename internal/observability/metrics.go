package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nregsmp/nregsreport/internal/model"
)

const namespace = "nregsreport"

// Request outcomes used as the "outcome" label.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeEmpty   = "empty"
)

// Metrics holds the Prometheus counters, histograms and gauges of a report run.
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
type Metrics struct {
	registry *prometheus.Registry

	DashboardRequests *prometheus.CounterVec   // labels: endpoint, outcome={success,error,empty}
	DashboardDuration *prometheus.HistogramVec // labels: endpoint
	Retries           *prometheus.CounterVec   // labels: target={dashboard,llm}

	LLMRequests *prometheus.CounterVec   // labels: provider, outcome={success,error,empty}
	LLMDuration *prometheus.HistogramVec // labels: provider
	LLMTokens   *prometheus.CounterVec   // labels: provider, direction={input,output}

	Sections     *prometheus.CounterVec // labels: status
	ScoreMarks   prometheus.Gauge
	RunDuration  prometheus.Gauge
	LastRunEpoch prometheus.Gauge
}

// NewMetrics creates the run metrics on a fresh registry.
// A CLI run writes its metrics once at exit, so nothing is registered
// with the default registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		DashboardRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_requests_total",
			Help:      "Dashboard API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		DashboardDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dashboard_request_duration_seconds",
			Help:      "Dashboard API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retried requests by target.",
		}, []string{"target"}),
		LLMRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Completion requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		LLMDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Completion request duration in seconds.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 60, 120, 300},
		}, []string{"provider"}),
		LLMTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Tokens consumed by provider and direction.",
		}, []string{"provider", "direction"}),
		Sections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_sections_total",
			Help:      "Report sections by final status.",
		}, []string{"status"}),
		ScoreMarks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scorecard_marks",
			Help:      "Overall scorecard marks of the reported district.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last report run.",
		}),
		LastRunEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last report run finished.",
		}),
	}

	m.registry.MustRegister(
		m.DashboardRequests,
		m.DashboardDuration,
		m.Retries,
		m.LLMRequests,
		m.LLMDuration,
		m.LLMTokens,
		m.Sections,
		m.ScoreMarks,
		m.RunDuration,
		m.LastRunEpoch,
	)

	return m
}

// Registry returns the registry all metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveDashboardRequest records one dashboard request attempt.
func (m *Metrics) ObserveDashboardRequest(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.DashboardRequests.WithLabelValues(endpoint, outcome).Inc()
	m.DashboardDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveRetry records a retried request.
func (m *Metrics) ObserveRetry(target string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(target).Inc()
}

// ObserveCompletion records one completion request and its token usage.
func (m *Metrics) ObserveCompletion(provider, outcome string, usage model.TokenUsage, d time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequests.WithLabelValues(provider, outcome).Inc()
	m.LLMDuration.WithLabelValues(provider).Observe(d.Seconds())
	m.LLMTokens.WithLabelValues(provider, "input").Add(float64(usage.InputTokens))
	m.LLMTokens.WithLabelValues(provider, "output").Add(float64(usage.OutputTokens))
}

// ObserveDocument records the section outcomes and scorecard of a finished report.
func (m *Metrics) ObserveDocument(doc *model.ReportDocument, elapsed time.Duration, finished time.Time) {
	if m == nil || doc == nil {
		return
	}
	for _, r := range doc.Sections {
		m.Sections.WithLabelValues(r.Status.String()).Inc()
	}
	if doc.Scorecard != nil {
		m.ScoreMarks.Set(doc.Scorecard.Marks)
	}
	m.RunDuration.Set(elapsed.Seconds())
	m.LastRunEpoch.Set(float64(finished.Unix()))
}

// WriteTextfile writes every metric to path in the Prometheus text format,
// for collection by the node exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
