package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Exporter modes accepted in METRICS_EXPORTER
const (
	ExporterScraper = "scraper"
	ExporterGRPC    = "grpc"
	ExporterNone    = "none"
)

// Provider owns the process-wide meter provider
type Provider struct {
	provider *metric.MeterProvider
	scrape   bool
}

// Setup installs the global meter provider for the requested exporter.
// "scraper" exposes Prometheus text on Handler(); "grpc" pushes OTLP to
// OTEL_EXPORTER_OTLP_METRICS_ENDPOINT (default localhost:4317); anything else disables metrics.
func Setup(ctx context.Context, exporter string) (*Provider, error) {
	switch exporter {
	case ExporterScraper:
		slog.Info("Starting metrics with scraper exporter")
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("creating prometheus exporter: %w", err)
		}
		mp := metric.NewMeterProvider(metric.WithReader(exp))
		otel.SetMeterProvider(mp)
		return &Provider{provider: mp, scrape: true}, nil

	case ExporterGRPC:
		slog.Info("Starting metrics with grpc exporter")
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating grpc exporter: %w", err)
		}
		mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(exp)))
		otel.SetMeterProvider(mp)
		return &Provider{provider: mp}, nil

	default:
		slog.Info("Metrics export disabled", "exporter", exporter)
		return &Provider{}, nil
	}
}

// Handler returns the Prometheus scrape handler, or nil when not in scraper mode
func (p *Provider) Handler() http.Handler {
	if p == nil || !p.scrape {
		return nil
	}
	return promhttp.Handler()
}

// Shutdown flushes and stops the meter provider
func (p *Provider) Shutdown(ctx context.Context) {
	if p == nil || p.provider == nil {
		return
	}
	_ = p.provider.ForceFlush(ctx)
	if err := p.provider.Shutdown(ctx); err != nil {
		slog.Warn("Metrics provider shutdown", "error", err)
	}
}
