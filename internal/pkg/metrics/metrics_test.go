package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/samirrijal/data512/internal/pkg/metrics"
)

func TestPush_SendsRegisteredMetrics(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		path, body = r.URL.Path, string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	metrics.RecordsWritten.WithLabelValues("push-test").Add(3)

	if err := metrics.Push(context.Background(), srv.URL, "data512_wildfire"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(path, "/metrics/job/data512_wildfire") {
		t.Errorf("unexpected push path %q", path)
	}
	if body == "" {
		t.Error("expected a metrics payload")
	}
}

func TestPush_DisabledWithoutURL(t *testing.T) {
	if err := metrics.Push(context.Background(), "", "job"); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
}

func TestFeatureOutcomes_Counts(t *testing.T) {
	before := testutil.ToFloat64(metrics.FeatureOutcomes.WithLabelValues("included"))
	metrics.FeatureOutcomes.WithLabelValues("included").Inc()
	after := testutil.ToFloat64(metrics.FeatureOutcomes.WithLabelValues("included"))
	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, got %v", after-before)
	}
}
