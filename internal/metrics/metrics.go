// Package metrics exposes Prometheus collectors for the HTTP API and the
// explanation pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages that can fall back.
const (
	StageConfiguration  = "configuration"
	StageClassification = "classification"
	StageEmbedding      = "embedding"
	StageRetrieval      = "retrieval"
	StageSynthesis      = "synthesis"
	StageRequest        = "request"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medlens_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medlens_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medlens_analyses_total",
			Help: "Total number of analyses by mode and report type",
		},
		[]string{"mode", "report_type"},
	)

	fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medlens_pipeline_fallbacks_total",
			Help: "Total number of pipeline stages that degraded to a fallback",
		},
		[]string{"stage"},
	)

	retrievedContexts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medlens_retrieved_contexts",
			Help:    "Number of safe contexts passed to synthesis per analysis",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 10},
		},
	)

	chunksIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medlens_chunks_ingested_total",
			Help: "Total number of chunks processed during ingestion by outcome",
		},
		[]string{"outcome"},
	)

	providerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medlens_provider_requests_total",
			Help: "Total number of external model provider requests by outcome",
		},
		[]string{"provider", "outcome"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and durations labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecordAnalysis counts a completed analysis.
func RecordAnalysis(mode, reportType string) {
	analysesTotal.WithLabelValues(mode, reportType).Inc()
}

// RecordFallback counts a stage that degraded.
func RecordFallback(stage string) {
	fallbacksTotal.WithLabelValues(stage).Inc()
}

// RecordRetrievedContexts observes how much grounding reached synthesis.
func RecordRetrievedContexts(n int) {
	retrievedContexts.Observe(float64(n))
}

// RecordChunk counts an ingested chunk as stored or failed.
func RecordChunk(stored bool) {
	outcome := "failed"
	if stored {
		outcome = "stored"
	}
	chunksIngested.WithLabelValues(outcome).Inc()
}

// RecordProviderRequest counts a provider call. outcome is "ok" or an error class.
func RecordProviderRequest(provider, outcome string) {
	providerRequests.WithLabelValues(provider, outcome).Inc()
}
