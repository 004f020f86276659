package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docinsight"

var (
	registry = prometheus.NewRegistry()

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
		},
	)

	documentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processing",
			Name:      "documents_total",
			Help:      "Documents processed by outcome.",
		},
		[]string{"outcome"},
	)
	processingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "processing",
			Name:      "duration_seconds",
			Help:      "Document processing duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)
	processingInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "processing",
			Name:      "in_flight",
			Help:      "Number of documents currently being processed.",
		},
	)
	orphansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processing",
			Name:      "orphans_total",
			Help:      "Orphaned documents found by recovery, by action.",
		},
		[]string{"action"},
	)

	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "LLM calls by provider, operation and outcome.",
		},
		[]string{"provider", "operation", "outcome"},
	)
	chatAnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "answers_total",
			Help:      "Chat answers by source (llm, citations, apology).",
		},
		[]string{"source"},
	)
)

func init() {
	registry.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		httpInFlight,
		documentsTotal,
		processingDuration,
		processingInFlight,
		orphansTotal,
		llmCallsTotal,
		chatAnswersTotal,
	)
}

// IncDocumentStarted counts a processing run that entered the pipeline.
func IncDocumentStarted() {
	documentsTotal.WithLabelValues("started").Inc()
	processingInFlight.Inc()
}

// IncDocumentCompleted counts a processing run that reached completed.
func IncDocumentCompleted(d time.Duration) {
	documentsTotal.WithLabelValues("completed").Inc()
	processingInFlight.Dec()
	processingDuration.Observe(d.Seconds())
}

// IncDocumentFailed counts a processing run that ended in error.
func IncDocumentFailed(d time.Duration) {
	documentsTotal.WithLabelValues("error").Inc()
	processingInFlight.Dec()
	processingDuration.Observe(d.Seconds())
}

// IncOrphan counts an orphaned document and what recovery did with it.
func IncOrphan(action string) {
	orphansTotal.WithLabelValues(action).Inc()
}

// IncLLMCall records one LLM call.
func IncLLMCall(provider, operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	llmCallsTotal.WithLabelValues(provider, operation, outcome).Inc()
}

// IncChatAnswer records where a chat answer came from.
func IncChatAnswer(source string) {
	chatAnswersTotal.WithLabelValues(source).Inc()
}

// Middleware records request count, latency and in-flight gauge per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// Gatherer exposes the registry for tests.
func Gatherer() prometheus.Gatherer {
	return registry
}
