package moonshot

import (
	"github.com/axiom-ai/axiom/pkg/llm"
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for outbound Moonshot calls.
var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "axiom",
			Name:      "moonshot_requests_total",
			Help:      "Total number of Moonshot chat completion attempts.",
		},
		[]string{"model", "outcome"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "axiom",
			Name:      "moonshot_request_duration_seconds",
			Help:      "Moonshot chat completion latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		},
		[]string{"model"},
	)
	searchRoundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "axiom",
			Name:      "moonshot_search_rounds_total",
			Help:      "Total number of $web_search tool rounds answered.",
		},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, searchRoundsTotal)
}

// outcome is the metric label for a failed attempt.
func outcome(err error) string {
	if code := llm.Code(err); code != "" {
		return code
	}
	return "error"
}
