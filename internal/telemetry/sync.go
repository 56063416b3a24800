package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "eckmarket-sync"

// SyncTelemetry records marketplace traffic and engine outcomes.
// A nil *SyncTelemetry is valid and records nothing.
type SyncTelemetry struct {
	requestCounter    metric.Int64Counter
	requestDuration   metric.Float64Histogram
	orderCounter      metric.Int64Counter
	runCounter        metric.Int64Counter
	runDuration       metric.Float64Histogram
	bulkItemCounter   metric.Int64Counter
	quotaAbortCounter metric.Int64Counter
}

// NewSyncTelemetry creates all instruments on the global meter provider
func NewSyncTelemetry() (*SyncTelemetry, error) {
	meter := otel.Meter(meterName)
	t := &SyncTelemetry{}

	var err error
	if t.requestCounter, err = meter.Int64Counter(
		"marketplace_requests_total",
		metric.WithDescription("Requests sent to the marketplace platform"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	if t.requestDuration, err = meter.Float64Histogram(
		"marketplace_request_duration_seconds",
		metric.WithDescription("Latency of marketplace platform requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	); err != nil {
		return nil, fmt.Errorf("failed to create request histogram: %w", err)
	}
	if t.orderCounter, err = meter.Int64Counter(
		"orders_synced_total",
		metric.WithDescription("Orders persisted by sync runs, by outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create order counter: %w", err)
	}
	if t.runCounter, err = meter.Int64Counter(
		"sync_runs_total",
		metric.WithDescription("Finished engine runs by kind and status"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create run counter: %w", err)
	}
	if t.runDuration, err = meter.Float64Histogram(
		"sync_run_duration_seconds",
		metric.WithDescription("Wall time of engine runs"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create run histogram: %w", err)
	}
	if t.bulkItemCounter, err = meter.Int64Counter(
		"bulk_update_items_total",
		metric.WithDescription("Bulk update items by reconciliation outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create bulk item counter: %w", err)
	}
	if t.quotaAbortCounter, err = meter.Int64Counter(
		"quota_exceeded_total",
		metric.WithDescription("Sync runs halted by the tenant order ceiling"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create quota counter: %w", err)
	}

	slog.Debug("Sync telemetry initialized")
	return t, nil
}

// ObserveRequest implements marketplace.RequestObserver
func (t *SyncTelemetry) ObserveRequest(ctx context.Context, method, endpoint string, statusCode int, elapsed time.Duration) {
	if t == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("endpoint", endpoint),
		attribute.String("status_code", statusClass(statusCode)),
	)
	t.requestCounter.Add(ctx, 1, attrs)
	t.requestDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordOrders adds persisted order counts of one page
func (t *SyncTelemetry) RecordOrders(ctx context.Context, inserted, updated, failed int) {
	if t == nil {
		return
	}
	add := func(n int, result string) {
		if n > 0 {
			t.orderCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("result", result)))
		}
	}
	add(inserted, "inserted")
	add(updated, "updated")
	add(failed, "failed")
}

// RecordRun counts a finished run
func (t *SyncTelemetry) RecordRun(ctx context.Context, kind, status string, elapsed time.Duration) {
	if t == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("kind", kind), attribute.String("status", status))
	t.runCounter.Add(ctx, 1, attrs)
	t.runDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordBulkItems counts reconciled bulk update items for one outcome
func (t *SyncTelemetry) RecordBulkItems(ctx context.Context, outcome string, n int) {
	if t == nil || n <= 0 {
		return
	}
	t.bulkItemCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordQuotaExceeded counts a quota abort
func (t *SyncTelemetry) RecordQuotaExceeded(ctx context.Context) {
	if t == nil {
		return
	}
	t.quotaAbortCounter.Add(ctx, 1)
}

// statusClass keeps label cardinality bounded; 0 marks a transport failure
func statusClass(code int) string {
	if code == 0 {
		return "transport_error"
	}
	return strconv.Itoa(code/100) + "xx"
}
