package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/eckmarket/internal/models"
	"github.com/xelth-com/eckmarket/internal/services/ordersync"
	"github.com/xelth-com/eckmarket/internal/tenants"
)

type staticTenants []models.Tenant

func (s staticTenants) ListActive(context.Context) ([]models.Tenant, error) { return s, nil }

type recordingSyncer struct {
	mu     sync.Mutex
	calls  []uint
	ranges []ordersync.Range
	result func(t *models.Tenant) (*ordersync.Result, error)
}

func (r *recordingSyncer) SyncOrders(_ context.Context, t *models.Tenant, rg ordersync.Range, _ int) (*ordersync.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, t.ID)
	r.ranges = append(r.ranges, rg)
	r.mu.Unlock()
	return r.result(t)
}

func (r *recordingSyncer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestRunOnceSyncsEveryTenantOverLookback(t *testing.T) {
	syncer := &recordingSyncer{result: func(t *models.Tenant) (*ordersync.Result, error) {
		switch t.ID {
		case 2:
			return &ordersync.Result{Status: ordersync.StatusQuotaExceeded}, nil
		case 3:
			return &ordersync.Result{Status: ordersync.StatusFailed}, errors.New("boom")
		}
		return &ordersync.Result{Status: ordersync.StatusSuccess}, nil
	}}
	s := New(staticTenants{{ID: 1}, {ID: 2}, {ID: 3}}, syncer, Config{Lookback: 48 * time.Hour})
	fixed := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	summary, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []uint{1, 2, 3}, syncer.calls)
	assert.Equal(t, PassSummary{Tenants: 3, Succeeded: 1, QuotaExceeded: 1, Failed: 1}, summary)
	assert.Equal(t, fixed.Add(-48*time.Hour).UnixMilli(), syncer.ranges[0].Start)
	assert.Equal(t, fixed.UnixMilli(), syncer.ranges[0].End)
}

func TestStartRunsInitialPassAndStops(t *testing.T) {
	syncer := &recordingSyncer{result: func(*models.Tenant) (*ordersync.Result, error) {
		return &ordersync.Result{Status: ordersync.StatusSuccess}, nil
	}}
	s := New(staticTenants{{ID: 1}}, syncer, Config{Interval: time.Hour})

	s.Start()
	require.Eventually(t, func() bool { return syncer.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
	assert.Equal(t, 1, syncer.count())
}

func TestRunOnceSkipsBusyTenants(t *testing.T) {
	syncer := &recordingSyncer{result: func(t *models.Tenant) (*ordersync.Result, error) {
		if t.ID == 1 {
			return nil, fmt.Errorf("order sync for tenant 1: %w", tenants.ErrBusy)
		}
		return &ordersync.Result{Status: ordersync.StatusSuccess}, nil
	}}
	s := New(staticTenants{{ID: 1}, {ID: 2}}, syncer, Config{})

	summary, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PassSummary{Tenants: 2, Succeeded: 1, Busy: 1}, summary)
}
