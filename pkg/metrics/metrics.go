package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	docflow = "docflow"

	// Pipeline metrics
	filesProcessedTotal = "files_processed_total"
	jobsRetriedTotal    = "jobs_retried_total"
	jobsDeadTotal       = "jobs_dead_total"
	reviewQueueDepth    = "review_queue_depth"

	// Labels
	fileOutcomeLabel = "outcome"
)

var filesProcessedLabels = []string{
	fileOutcomeLabel,
}

/**
* Metrics definition
**/
var filesProcessedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: docflow,
		Name:      filesProcessedTotal,
		Help:      "number of file jobs that reached an outcome, partitioned by outcome",
	},
	filesProcessedLabels,
)

var jobsRetriedTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: docflow,
		Name:      jobsRetriedTotal,
		Help:      "number of transient failures re-queued for retry",
	},
)

var jobsDeadTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: docflow,
		Name:      jobsDeadTotal,
		Help:      "number of jobs that exhausted their retry budget",
	},
)

var reviewQueueDepthMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: docflow,
		Name:      reviewQueueDepth,
		Help:      "number of file jobs currently waiting for manual review",
	},
)

func IncreaseFilesProcessedMetric(outcome string) {
	filesProcessedTotalMetric.With(prometheus.Labels{fileOutcomeLabel: outcome}).Inc()
}

func IncreaseJobsRetriedMetric() {
	jobsRetriedTotalMetric.Inc()
}

func IncreaseJobsDeadMetric() {
	jobsDeadTotalMetric.Inc()
}

func SetReviewQueueDepthMetric(depth int) {
	reviewQueueDepthMetric.Set(float64(depth))
}

type PrometheusMetricsHandler struct{}

func NewPrometheusMetricsHandler() *PrometheusMetricsHandler {
	return &PrometheusMetricsHandler{}
}

func (h *PrometheusMetricsHandler) Handler() http.Handler {
	return promhttp.Handler()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(filesProcessedTotalMetric)
	prometheus.MustRegister(jobsRetriedTotalMetric)
	prometheus.MustRegister(jobsDeadTotalMetric)
	prometheus.MustRegister(reviewQueueDepthMetric)
}
