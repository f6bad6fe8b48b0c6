package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the matching core, exposed on /metrics.
var (
	indexedDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchd_indexed_documents_total",
		Help: "Documents upserted into the vector store by namespace.",
	}, []string{"namespace"})

	degradedDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchd_degraded_documents_total",
		Help: "Documents indexed with zero-vector embeddings after a provider failure.",
	}, []string{"namespace"})

	matchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchd_match_requests_total",
		Help: "Match calls by direction (users_for_task, tasks_for_user) and outcome.",
	}, []string{"direction", "outcome"})

	matchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "matchd_match_duration_seconds",
		Help:    "End-to-end match call duration including facet queries.",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"direction"})

	facetQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchd_facet_queries_total",
		Help: "Per-facet vector store queries issued by match calls.",
	}, []string{"direction"})
)

func recordMatch(direction string, seconds float64, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	matchRequests.WithLabelValues(direction, outcome).Inc()
	matchDuration.WithLabelValues(direction).Observe(seconds)
}
