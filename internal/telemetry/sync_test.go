package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "transport_error", statusClass(0))
	assert.Equal(t, "2xx", statusClass(200))
	assert.Equal(t, "4xx", statusClass(429))
	assert.Equal(t, "5xx", statusClass(503))
}

func TestNilTelemetryIsSafe(t *testing.T) {
	var tel *SyncTelemetry
	ctx := context.Background()
	assert.NotPanics(t, func() {
		tel.ObserveRequest(ctx, "GET", "orders", 200, time.Millisecond)
		tel.RecordOrders(ctx, 1, 2, 3)
		tel.RecordRun(ctx, "orders", "success", time.Second)
		tel.RecordBulkItems(ctx, "success", 4)
		tel.RecordQuotaExceeded(ctx)
	})
}

func TestInstrumentsOnDefaultProvider(t *testing.T) {
	tel, err := NewSyncTelemetry()
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		tel.ObserveRequest(ctx, "POST", "price-and-inventory", 200, 20*time.Millisecond)
		tel.RecordOrders(ctx, 3, 0, 1)
		tel.RecordRun(ctx, "bulk_update", "partial", time.Second)
	})
}

func TestSetupDisabled(t *testing.T) {
	p, err := Setup(context.Background(), ExporterNone)
	require.NoError(t, err)
	assert.Nil(t, p.Handler())
	p.Shutdown(context.Background())
}
