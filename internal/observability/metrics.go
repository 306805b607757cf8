// Package observability holds the Prometheus collectors exported on
// /metrics and the helpers that feed them.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trialq_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trialq_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trialq_llm_calls_total",
			Help: "Total number of language model calls by kind (translate, refine) and status.",
		},
		[]string{"kind", "status"},
	)

	llmCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trialq_llm_call_duration_seconds",
			Help:    "Language model call latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"kind"},
	)

	sqlExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trialq_sql_executions_total",
			Help: "Total number of generated SQL executions by status.",
		},
		[]string{"status"},
	)

	answersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trialq_answers_total",
			Help: "Total number of answered questions by outcome (success, exhausted, translation_error).",
		},
		[]string{"outcome"},
	)

	answerAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trialq_answer_attempts",
			Help:    "Executions used per answered question.",
			Buckets: []float64{1, 2, 3},
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		llmCallsTotal,
		llmCallDurationSeconds,
		sqlExecutionsTotal,
		answersTotal,
		answerAttempts,
	)
}

// Outcome labels for ObserveAnswer.
const (
	OutcomeSuccess          = "success"
	OutcomeExhausted        = "exhausted"
	OutcomeTranslationError = "translation_error"
)

// ObserveLLMCall records one completion call.
func ObserveLLMCall(kind string, err error, elapsed time.Duration) {
	llmCallsTotal.WithLabelValues(kind, statusLabel(err == nil)).Inc()
	llmCallDurationSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveExecution records one execution of generated SQL.
func ObserveExecution(success bool) {
	sqlExecutionsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// ObserveAnswer records the outcome of a full translate/repair run.
func ObserveAnswer(outcome string, attempts int) {
	answersTotal.WithLabelValues(outcome).Inc()
	if attempts > 0 {
		answerAttempts.Observe(float64(attempts))
	}
}

func statusLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// MetricsMiddleware counts requests by chi route pattern so path
// parameters do not explode label cardinality.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := strconv.Itoa(recorder.status)
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDurationSeconds.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
