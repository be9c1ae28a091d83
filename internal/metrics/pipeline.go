package metrics

import "github.com/prometheus/client_golang/prometheus"

// Assist pipeline Prometheus metrics.
var (
	PipelineErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_errors_total",
			Help:      "Classified pipeline errors",
		},
		[]string{"code"},
	)

	RetrievalSourceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_source_duration_seconds",
			Help:      "Per-source retrieval latency",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 0.8, 1, 2},
		},
		[]string{"scope", "kind"}, // kind: "keyword" / "vector"
	)

	RetrievalSourceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_source_failures_total",
			Help:      "Dropped retrieval sources",
		},
		[]string{"scope", "reason"}, // reason: "timeout" / "error"
	)

	CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Retrieval cache lookups",
		},
		[]string{"tier", "result"}, // tier: "exact" / "semantic"
	)

	RerankTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rerank_total",
			Help:      "Re-rank attempts by path",
		},
		[]string{"path", "status"}, // path: "cross_encoder" / "llm"
	)

	GenerationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_total",
			Help:      "Answer generation outcomes",
		},
		[]string{"status"}, // "ok" / "spliced" / "fallback"
	)

	AssistDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assist_duration_seconds",
			Help:      "End-to-end assist latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 4, 6},
		},
		[]string{"route", "cache"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers assist pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		PipelineErrorsTotal,
		RetrievalSourceDuration,
		RetrievalSourceFailuresTotal,
		CacheRequestsTotal,
		RerankTotal,
		GenerationTotal,
		AssistDuration,
	)
	pipelineMetricsRegistered = true
}
