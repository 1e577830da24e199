package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// HTTP acquisition metrics
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "data512",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total upstream API requests by outcome",
	}, []string{"api", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "data512",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Upstream API request latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"api"})

	APIRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "data512",
		Subsystem: "api",
		Name:      "retries_total",
		Help:      "Total retried upstream API requests",
	}, []string{"api"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "data512",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total response cache hits",
	}, []string{"api"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "data512",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total response cache misses",
	}, []string{"api"})

	// Artifact metrics
	RecordsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "data512",
		Subsystem: "artifact",
		Name:      "records_written_total",
		Help:      "Total records written to output artifacts",
	}, []string{"program"})

	RecordsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "data512",
		Subsystem: "artifact",
		Name:      "records_failed_total",
		Help:      "Total input records that could not be acquired",
	}, []string{"program"})

	// Wildfire filter metrics
	FeatureOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "data512",
		Subsystem: "wildfire",
		Name:      "features_total",
		Help:      "Wildfire features processed by outcome",
	}, []string{"outcome"})

	RunDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "data512",
		Subsystem: "run",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of the last run",
	}, []string{"program"})
)

// Push sends every registered metric to a Prometheus Pushgateway under the
// given job name. Batch programs call it once before exiting.
func Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	err := push.New(url, job).
		Gatherer(prometheus.DefaultGatherer).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
