package telemetry_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jonesrussell/north-cloud/catalog/internal/telemetry"
)

func newTestProvider(t *testing.T) *telemetry.Provider {
	t.Helper()
	return telemetry.NewProviderWithRegistry(prometheus.NewRegistry())
}

func TestNewProvider(t *testing.T) {
	provider := newTestProvider(t)
	if provider.Tracer == nil {
		t.Error("expected non-nil tracer")
	}
	if provider.Metrics == nil {
		t.Error("expected non-nil metrics")
	}
}

func TestRecordClassification(t *testing.T) {
	provider := newTestProvider(t)
	ctx := context.Background()

	provider.RecordClassification(ctx, "finance", "classified", 100*time.Millisecond)
	provider.RecordClassification(ctx, "finance", "classified", 50*time.Millisecond)
	provider.RecordClassification(ctx, "finance", "error", 10*time.Millisecond)

	got := testutil.ToFloat64(provider.Metrics.ObjectsClassified.WithLabelValues("finance", "classified"))
	if got != 2 {
		t.Errorf("classified counter = %v, want 2", got)
	}
}

func TestRecordScorerCall(t *testing.T) {
	provider := newTestProvider(t)

	provider.RecordScorerCall("score", "text", time.Millisecond, nil)
	provider.RecordScorerCall("score", "text", time.Millisecond, errors.New("timeout"))

	if got := testutil.ToFloat64(provider.Metrics.ScorerCalls.WithLabelValues("score", "text", "failure")); got != 1 {
		t.Errorf("failure counter = %v, want 1", got)
	}
}

func TestGauges(t *testing.T) {
	provider := newTestProvider(t)

	provider.SetQueueDepth(15)
	provider.SetActiveWorkers(4)
	provider.RecordBatchSize(15)

	if got := testutil.ToFloat64(provider.Metrics.QueueDepth); got != 15 {
		t.Errorf("queue depth = %v, want 15", got)
	}
	if got := testutil.ToFloat64(provider.Metrics.ActiveWorkers); got != 4 {
		t.Errorf("active workers = %v, want 4", got)
	}
}

func TestHandler(t *testing.T) {
	provider := newTestProvider(t)
	provider.RecordIngest(context.Background(), "finance", "item")

	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "catalog_objects_ingested_total") {
		t.Error("metrics output missing catalog_objects_ingested_total")
	}
}

func TestStartSpan(t *testing.T) {
	provider := newTestProvider(t)

	ctx, span := provider.StartSpan(context.Background(), "classify")
	defer span.End()
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
}
