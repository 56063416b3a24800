package ordersync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/eckmarket/internal/config"
	"github.com/xelth-com/eckmarket/internal/events"
	"github.com/xelth-com/eckmarket/internal/marketplace"
	"github.com/xelth-com/eckmarket/internal/models"
	"github.com/xelth-com/eckmarket/internal/quota"
	"github.com/xelth-com/eckmarket/internal/tenants"
)

// blockingFetcher parks the first fetch until released
type blockingFetcher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (f *blockingFetcher) FetchOrders(ctx context.Context, _ marketplace.OrderQuery) (*marketplace.OrderPage, error) {
	f.once.Do(func() { close(f.entered) })
	select {
	case <-f.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return page(packages("BLK", 2), 1), nil
}

func TestSyncOrdersRejectsOverlappingRunForSameTenant(t *testing.T) {
	h := newHarness(t, nil)
	blocking := &blockingFetcher{entered: make(chan struct{}), release: make(chan struct{})}
	idle := &fakeFetcher{respond: func(marketplace.OrderQuery) (*marketplace.OrderPage, error) {
		return page(nil, 0), nil
	}}
	h.svc.gateway = func(t *models.Tenant) (OrderFetcher, error) {
		if t.ID == h.tenant.ID {
			return blocking, nil
		}
		return idle, nil
	}
	h.svc.events = events.NopPublisher{}
	r := RangeOf(date(time.January, 1), date(time.January, 2))

	type outcome struct {
		res *Result
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := h.svc.SyncOrders(context.Background(), h.tenant, r, 10)
		first <- outcome{res, err}
	}()
	<-blocking.entered

	res, err := h.svc.SyncOrders(context.Background(), h.tenant, r, 10)
	assert.ErrorIs(t, err, tenants.ErrBusy)
	assert.Nil(t, res)

	other, err := h.svc.SyncOrders(context.Background(), &models.Tenant{ID: 2}, r, 10)
	require.NoError(t, err, "other tenants are not blocked")
	assert.Equal(t, StatusSuccess, other.Status)

	close(blocking.release)
	done := <-first
	require.NoError(t, done.err)
	assert.Equal(t, StatusSuccess, done.res.Status)

	again, err := h.svc.SyncOrders(context.Background(), h.tenant, r, 10)
	require.NoError(t, err, "tenant is free again after the run")
	assert.Equal(t, 2, again.Updated)
}

// barrierGate holds every caller after its ceiling check until all expected callers
// have checked, so each one validates against the same stale count.
type barrierGate struct {
	*quota.Tracker
	arrived sync.WaitGroup
}

func (g *barrierGate) CheckAndReserve(ctx context.Context, tenantID uint, metric string, total int64) error {
	err := g.Tracker.CheckAndReserve(ctx, tenantID, metric, total)
	g.arrived.Done()
	g.arrived.Wait()
	return err
}

// Two processes (separate lock sets) syncing one tenant must not commit past the ceiling.
func TestSyncOrdersOverlappingProcessesKeepCeiling(t *testing.T) {
	h := newHarness(t, ceiling{1: 8})
	gate := &barrierGate{Tracker: h.tracker}
	gate.arrived.Add(2)

	newRun := func(prefix string) *Service {
		f := &fakeFetcher{respond: func(marketplace.OrderQuery) (*marketplace.OrderPage, error) {
			return page(packages(prefix, 5), 1), nil
		}}
		return NewService(Deps{
			Gateway: func(*models.Tenant) (OrderFetcher, error) { return f, nil },
			Orders:  h.orders,
			Quota:   gate,
			History: h.history,
			Config:  config.DefaultEngineConfig(),
		})
	}
	services := []*Service{newRun("A"), newRun("B")}
	r := RangeOf(date(time.January, 1), date(time.January, 2))

	results := make([]*Result, 2)
	var wg sync.WaitGroup
	for i, svc := range services {
		wg.Add(1)
		go func(i int, svc *Service) {
			defer wg.Done()
			res, err := svc.SyncOrders(context.Background(), h.tenant, r, 10)
			assert.NoError(t, err)
			results[i] = res
		}(i, svc)
	}
	wg.Wait()

	statuses := []string{results[0].Status, results[1].Status}
	assert.ElementsMatch(t, []string{StatusSuccess, StatusQuotaExceeded}, statuses)

	count, err := h.tracker.CurrentCount(context.Background(), h.tenant.ID, quota.MetricOrders)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count, "only the winning increment is committed")

	for _, res := range results {
		if res.Status == StatusQuotaExceeded {
			require.NotNil(t, res.Quota)
			assert.Equal(t, int64(5), res.Quota.CurrentCountBeforeFetch)
			assert.Equal(t, int64(10), res.Quota.Prospective)
		}
	}
}
