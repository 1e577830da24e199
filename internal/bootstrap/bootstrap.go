// Package bootstrap wires the ambient stack shared by the acquisition
// programs: configuration, logging, tracing, the optional response cache and
// artifact events, and the final metrics push.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/data512/internal/adapters/fetch"
	natsadapter "github.com/samirrijal/data512/internal/adapters/nats"
	"github.com/samirrijal/data512/internal/adapters/valkey"
	"github.com/samirrijal/data512/internal/core/domain"
	"github.com/samirrijal/data512/internal/core/ports"
	"github.com/samirrijal/data512/internal/pkg/config"
	"github.com/samirrijal/data512/internal/pkg/logging"
	"github.com/samirrijal/data512/internal/pkg/metrics"
	"github.com/samirrijal/data512/internal/pkg/telemetry"
)

// Runtime holds what a program needs for one run.
type Runtime struct {
	Program   string
	Config    *config.Config
	Cache     ports.CacheService      // nil when valkey is not configured
	Publisher ports.ArtifactPublisher // nil when NATS is not configured

	started time.Time
	closers []func()
}

// Start loads configuration and brings up logging, tracing, cache and
// publisher. The returned context is cancelled on SIGINT or SIGTERM.
func Start(program string) (context.Context, *Runtime, error) {
	cfg, err := config.Load("data512-" + program)
	if err != nil {
		return nil, nil, err
	}

	logFile, err := logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.Dir, program)
	if err != nil {
		return nil, nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rt := &Runtime{Program: program, Config: cfg, started: time.Now()}
	rt.closers = append(rt.closers, func() { _ = logFile.Close() }, stop)

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			rt.closers = append(rt.closers, shutdown)
		}
	}

	// Cache
	if cfg.Valkey.Addr != "" {
		cache, err := valkey.New(ctx, cfg.Valkey.Addr, "data512:")
		if err != nil {
			slog.Warn("valkey unavailable, responses will not be cached", "error", err)
		} else {
			rt.Cache = cache
			rt.closers = append(rt.closers, cache.Close)
		}
	}

	// NATS
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, artifact events disabled", "error", err)
		} else {
			rt.Publisher = pub
			rt.closers = append(rt.closers, pub.Close)
		}
	}

	slog.Info("program starting", "program", program)
	return ctx, rt, nil
}

// HTTPClient returns a throttled client for one upstream API. userAgent
// overrides the configured default when set.
func (r *Runtime) HTTPClient(api string, requestsPerSecond float64, userAgent string) *fetch.Client {
	if userAgent == "" {
		userAgent = r.Config.HTTP.UserAgent
	}
	return fetch.New(fetch.Options{
		API:               api,
		UserAgent:         userAgent,
		Timeout:           r.Config.HTTP.Timeout,
		RequestsPerSecond: requestsPerSecond,
		Burst:             1,
		MaxRetries:        r.Config.HTTP.MaxRetries,
		Cache:             r.Cache,
		CacheTTL:          r.Config.HTTP.CacheTTL,
	})
}

// Written records an artifact: it counts the records and announces the
// artifact when a publisher is configured. A failed announcement is logged.
func (r *Runtime) Written(ctx context.Context, path string, records int) {
	_, span := telemetry.Tracer().Start(ctx, telemetry.SpanArtifact)
	span.SetAttributes(
		attribute.String(telemetry.AttrArtifactPath, path),
		attribute.Int(telemetry.AttrRecordCount, records),
	)
	defer span.End()

	metrics.RecordsWritten.WithLabelValues(r.Program).Add(float64(records))
	slog.Info("artifact written", "path", path, "records", records)

	if r.Publisher == nil {
		return
	}
	event := &domain.ArtifactEvent{
		Program:   r.Program,
		Path:      path,
		Records:   records,
		WrittenAt: time.Now().UTC(),
	}
	if err := r.Publisher.PublishArtifact(ctx, event); err != nil {
		slog.Warn("artifact event not published", "path", path, "error", err)
	}
}

// Close pushes metrics and releases everything Start acquired, in reverse order.
func (r *Runtime) Close() {
	elapsed := time.Since(r.started)
	metrics.RunDuration.WithLabelValues(r.Program).Set(elapsed.Seconds())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metrics.Push(ctx, r.Config.Metrics.PushgatewayURL, "data512_"+r.Program); err != nil {
		slog.Warn("metrics push failed", "error", err)
	}

	slog.Info("program finished", "program", r.Program, "elapsed", elapsed.String())
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// Arg returns the i-th positional argument, or fallback when it is absent.
func Arg(args []string, i int, fallback string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return fallback
}

// Usage prints a usage line for a program to w.
func Usage(w io.Writer, program, synopsis string) {
	fmt.Fprintf(w, "usage: %s %s\n", program, synopsis)
}
