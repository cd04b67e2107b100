package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "response_time",
			Help:    "http response time.",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60},
		},
	)

	totalHttpRequestsToUri = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests_to_uri", Help: "http requests to uri"},
		[]string{"code", "uri", "method"},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests", Help: "http requests by code, and method"},
		[]string{"code", "method"},
	)

	functionInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "function_invocations_total", Help: "function invocations by shape and outcome"},
		[]string{"function", "shape", "outcome"},
	)

	functionElements = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "function_elements_total", Help: "stream elements decoded (in) and encoded (out)"},
		[]string{"function", "direction"},
	)

	functionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "function_duration_seconds",
			Help:    "function invocation time, first byte to last.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"function"},
	)
)

func init() {
	prometheus.MustRegister(
		responseTime,
		totalHttpRequestsToUri,
		totalHttpRequests,
		functionInvocations,
		functionElements,
		functionDuration,
	)
}
