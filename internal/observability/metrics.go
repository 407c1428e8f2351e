package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce         sync.Once
	apiRequestsTotal     *prometheus.CounterVec
	apiLatencySeconds    *prometheus.HistogramVec
	apiErrorsTotal       *prometheus.CounterVec
	gradeOpsTotal        *prometheus.CounterVec
	gradeOpLatency       *prometheus.HistogramVec
	extractionsTotal     *prometheus.CounterVec
	extractionCacheTotal *prometheus.CounterVec
	uploadRejectedTotal  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradepred",
			Name:      "api_requests_total",
			Help:      "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gradepred",
			Name:      "api_latency_seconds",
			Help:      "Latency distribution for API requests.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1, 5, 30, 120, 300},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradepred",
			Name:      "api_errors_total",
			Help:      "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		gradeOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradepred",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Grade engine operations by outcome.",
		}, []string{"operation", "outcome"})

		gradeOpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gradepred",
			Subsystem: "engine",
			Name:      "operation_seconds",
			Help:      "Latency of grade engine operations.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"operation"})

		extractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradepred",
			Subsystem: "extraction",
			Name:      "documents_total",
			Help:      "Document extractions by kind and outcome.",
		}, []string{"kind", "outcome"})

		extractionCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradepred",
			Subsystem: "extraction",
			Name:      "cache_lookups_total",
			Help:      "Extraction cache lookups by kind and result.",
		}, []string{"kind", "result"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradepred",
			Subsystem: "upload",
			Name:      "rejected_total",
			Help:      "Uploads rejected before extraction, by reason.",
		}, []string{"reason"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			gradeOpsTotal, gradeOpLatency,
			extractionsTotal, extractionCacheTotal, uploadRejectedTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// GradeOperations counts engine operations by outcome (ok, invalid).
func GradeOperations() *prometheus.CounterVec {
	RegisterMetrics()
	return gradeOpsTotal
}

// GradeOperationLatency exposes the engine latency histogram.
func GradeOperationLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return gradeOpLatency
}

// Extractions counts syllabus and grades extractions.
func Extractions() *prometheus.CounterVec {
	RegisterMetrics()
	return extractionsTotal
}

// ExtractionCache counts cache hits and misses.
func ExtractionCache() *prometheus.CounterVec {
	RegisterMetrics()
	return extractionCacheTotal
}

// UploadRejected counts uploads refused for size or type.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// MetricsHandler serves the default registry, including the LLM client
// collectors registered by pkg/ai. A collector failing to gather does not
// hide the others.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}))
}
