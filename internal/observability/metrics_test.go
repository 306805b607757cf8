package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveLLMCall(t *testing.T) {
	before := testutil.ToFloat64(llmCallsTotal.WithLabelValues("refine", "error"))
	ObserveLLMCall("refine", errors.New("boom"), 10*time.Millisecond)
	after := testutil.ToFloat64(llmCallsTotal.WithLabelValues("refine", "error"))
	if after-before != 1 {
		t.Fatalf("llm error counter delta = %v, want 1", after-before)
	}
}

func TestObserveExecutionAndAnswer(t *testing.T) {
	beforeExec := testutil.ToFloat64(sqlExecutionsTotal.WithLabelValues("ok"))
	ObserveExecution(true)
	if got := testutil.ToFloat64(sqlExecutionsTotal.WithLabelValues("ok")) - beforeExec; got != 1 {
		t.Fatalf("execution counter delta = %v", got)
	}

	beforeAns := testutil.ToFloat64(answersTotal.WithLabelValues(OutcomeExhausted))
	ObserveAnswer(OutcomeExhausted, 3)
	if got := testutil.ToFloat64(answersTotal.WithLabelValues(OutcomeExhausted)) - beforeAns; got != 1 {
		t.Fatalf("answer counter delta = %v", got)
	}
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/api/v1/history/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/v1/history/{id}", "404"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/history/42", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/v1/history/{id}", "404"))
	if after-before != 1 {
		t.Fatalf("request counter delta = %v, want 1", after-before)
	}
}
