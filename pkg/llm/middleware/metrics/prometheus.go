package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	outcomesTotal   *prometheus.CounterVec
	probesTotal     *prometheus.CounterVec
}

// NewPrometheusRecorder registers the outreach collectors on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_provider_requests_total",
				Help: "Total number of provider requests by provider, model, operation, and status",
			},
			[]string{"provider", "model", "operation", "status", "error_type"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_provider_tokens_total",
				Help: "Estimated tokens sent to and received from providers",
			},
			[]string{"provider", "model", "type"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "outreach_provider_request_duration_seconds",
				Help:    "Duration of provider requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model", "operation"},
		),
		outcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_chain_outcomes_total",
				Help: "Which chain step produced each generation or refinement result",
			},
			[]string{"operation", "source", "degraded"},
		),
		probesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_credential_probes_total",
				Help: "Credential probe results by provider",
			},
			[]string{"provider", "status"},
		),
	}
}

// ObserveRequest records metrics for a completed provider request.
func (p *PrometheusRecorder) ObserveRequest(
	provider, model string,
	op Operation,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	p.requestsTotal.WithLabelValues(provider, model, string(op), status, errorType).Inc()

	if success {
		p.tokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}

	p.requestDuration.WithLabelValues(provider, model, string(op)).Observe(duration.Seconds())
}

// ObserveOutcome counts the chain step that produced a result.
func (p *PrometheusRecorder) ObserveOutcome(op Operation, source string, degraded bool) {
	p.outcomesTotal.WithLabelValues(string(op), source, strconv.FormatBool(degraded)).Inc()
}

// ObserveProbe counts a credential probe.
func (p *PrometheusRecorder) ObserveProbe(provider, status string) {
	p.probesTotal.WithLabelValues(provider, status).Inc()
}
