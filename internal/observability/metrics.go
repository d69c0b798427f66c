package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesask_http_requests_total",
			Help: "Total number of HTTP requests by route pattern.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesask_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route", "status"},
	)

	askTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesask_ask_total",
			Help: "Total number of ask pipeline runs by terminal outcome.",
		},
		[]string{"outcome"},
	)
	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesask_stage_duration_seconds",
			Help:    "Time spent in each ask pipeline stage.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)
	validationRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesask_validation_rejections_total",
			Help: "Total number of generated queries rejected by the validator.",
		},
		[]string{"reason"},
	)
	oracleCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesask_oracle_calls_total",
			Help: "Total number of generation oracle calls by purpose and outcome.",
		},
		[]string{"purpose", "outcome"},
	)
	summaryFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salesask_summary_fallbacks_total",
			Help: "Total number of answers rendered by the deterministic summary fallback.",
		},
	)
	inflightAsks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "salesask_inflight_asks",
			Help: "Current number of ask pipelines holding an execution slot.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		askTotal,
		stageDurationSeconds,
		validationRejectionsTotal,
		oracleCallsTotal,
		summaryFallbacksTotal,
		inflightAsks,
	)
}

func ObserveAsk(outcome string) {
	askTotal.WithLabelValues(outcome).Inc()
}

func ObserveStage(stage string, elapsed time.Duration) {
	stageDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func IncrementValidationRejection(reason string) {
	validationRejectionsTotal.WithLabelValues(reason).Inc()
}

func ObserveOracleCall(purpose, outcome string) {
	oracleCallsTotal.WithLabelValues(purpose, outcome).Inc()
}

func IncrementSummaryFallback() {
	summaryFallbacksTotal.Inc()
}

func AddInflightAsks(delta int) {
	inflightAsks.Add(float64(delta))
}
