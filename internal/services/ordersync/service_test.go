package ordersync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/eckmarket/internal/config"
	"github.com/xelth-com/eckmarket/internal/events"
	"github.com/xelth-com/eckmarket/internal/marketplace"
	"github.com/xelth-com/eckmarket/internal/models"
	"github.com/xelth-com/eckmarket/internal/quota"
	"github.com/xelth-com/eckmarket/internal/store"
	"github.com/xelth-com/eckmarket/internal/testutil"
)

type fakeFetcher struct {
	respond func(q marketplace.OrderQuery) (*marketplace.OrderPage, error)
	calls   []marketplace.OrderQuery
}

func (f *fakeFetcher) FetchOrders(_ context.Context, q marketplace.OrderQuery) (*marketplace.OrderPage, error) {
	f.calls = append(f.calls, q)
	return f.respond(q)
}

type ceiling map[uint]int64

func (c ceiling) Limit(_ context.Context, tenantID uint, _ string) (*int64, error) {
	if v, ok := c[tenantID]; ok {
		return &v, nil
	}
	return nil, nil
}

type harness struct {
	svc     *Service
	fetcher *fakeFetcher
	orders  *store.OrderStore
	history *store.HistoryStore
	tracker *quota.Tracker
	events  *events.Recorder
	tenant  *models.Tenant
}

func newHarness(t *testing.T, limits quota.LimitResolver) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	h := &harness{
		fetcher: &fakeFetcher{},
		orders:  store.NewOrderStore(db),
		history: store.NewHistoryStore(db),
		tracker: quota.NewTracker(db, limits),
		events:  &events.Recorder{},
		tenant:  &models.Tenant{ID: 1, SupplierID: "1001"},
	}
	h.svc = NewService(Deps{
		Gateway: func(*models.Tenant) (OrderFetcher, error) { return h.fetcher, nil },
		Orders:  h.orders,
		Quota:   h.tracker,
		History: h.history,
		Events:  h.events,
		Config:  config.DefaultEngineConfig(),
	})
	return h
}

func packages(prefix string, n int) []marketplace.ShipmentPackage {
	out := make([]marketplace.ShipmentPackage, n)
	for i := range out {
		out[i] = marketplace.ShipmentPackage{
			ID:                int64(i + 1),
			OrderNumber:       fmt.Sprintf("%s-%03d", prefix, i),
			Status:            models.OrderStatusCreated,
			CustomerFirstName: "Ada",
			CustomerLastName:  "Lovelace",
			TotalPrice:        99.9,
			LastModifiedDate:  date(time.January, 2).UnixMilli(),
			Lines:             []marketplace.ShipmentLine{{Barcode: "BC1", Quantity: 1, Price: 99.9}},
		}
	}
	return out
}

func page(items []marketplace.ShipmentPackage, totalPages int) *marketplace.OrderPage {
	return &marketplace.OrderPage{Content: items, TotalPages: totalPages, TotalElements: len(items)}
}

func TestSyncOrdersShortPageEndsWindow(t *testing.T) {
	h := newHarness(t, nil)
	h.fetcher.respond = func(q marketplace.OrderQuery) (*marketplace.OrderPage, error) {
		switch q.Page {
		case 0:
			return page(packages("A", 3), 10), nil
		case 1:
			return page(packages("B", 1), 10), nil
		}
		t.Fatalf("unexpected page %d", q.Page)
		return nil, nil
	}

	res, err := h.svc.SyncOrders(context.Background(), h.tenant,
		RangeOf(date(time.January, 1), date(time.January, 3)), 3)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Len(t, h.fetcher.calls, 2)
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 4, res.Success)
	assert.Equal(t, 4, res.NewlyInserted)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 1, res.WindowsDone)

	n, err := h.orders.Count(context.Background(), h.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	count, err := h.tracker.CurrentCount(context.Background(), h.tenant.ID, quota.MetricOrders)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestSyncOrdersLastReportedPageEndsWindow(t *testing.T) {
	h := newHarness(t, nil)
	h.fetcher.respond = func(q marketplace.OrderQuery) (*marketplace.OrderPage, error) {
		return page(packages(fmt.Sprintf("P%d", q.Page), 2), 2), nil
	}

	res, err := h.svc.SyncOrders(context.Background(), h.tenant,
		RangeOf(date(time.January, 1), date(time.January, 3)), 2)
	require.NoError(t, err)
	assert.Len(t, h.fetcher.calls, 2)
	assert.Equal(t, 4, res.NewlyInserted)
}

func TestSyncOrdersWalksWindowsInOrder(t *testing.T) {
	h := newHarness(t, nil)
	h.fetcher.respond = func(q marketplace.OrderQuery) (*marketplace.OrderPage, error) {
		return page(nil, 0), nil
	}

	res, err := h.svc.SyncOrders(context.Background(), h.tenant,
		RangeOf(date(time.January, 1), date(time.February, 20)), 0)
	require.NoError(t, err)

	require.Len(t, h.fetcher.calls, 4)
	assert.Equal(t, 4, res.Windows)
	assert.Equal(t, 4, res.WindowsDone)
	for i, q := range h.fetcher.calls {
		assert.Equal(t, 0, q.Page)
		assert.Equal(t, 200, q.Size, "default page size")
		assert.Equal(t, marketplace.OrderByLastModified, q.OrderByField)
		if i > 0 {
			assert.Equal(t, h.fetcher.calls[i-1].EndDate, q.StartDate)
		}
	}
	assert.Equal(t, date(time.January, 1).UnixMilli(), h.fetcher.calls[0].StartDate)
	assert.Equal(t, date(time.February, 20).UnixMilli(), h.fetcher.calls[3].EndDate)
}

func TestSyncOrdersClampsPageSize(t *testing.T) {
	h := newHarness(t, nil)
	h.fetcher.respond = func(marketplace.OrderQuery) (*marketplace.OrderPage, error) { return page(nil, 0), nil }

	_, err := h.svc.SyncOrders(context.Background(), h.tenant,
		RangeOf(date(time.January, 1), date(time.January, 2)), 1000)
	require.NoError(t, err)
	assert.Equal(t, marketplace.MaxOrderPageSize, h.fetcher.calls[0].Size)
}

func TestSyncOrdersQuotaExceededHaltsWithoutCommit(t *testing.T) {
	h := newHarness(t, ceiling{1: 100})
	ctx := context.Background()
	require.NoError(t, h.tracker.Commit(ctx, h.tenant.ID, quota.MetricOrders, 95))

	h.fetcher.respond = func(q marketplace.OrderQuery) (*marketplace.OrderPage, error) {
		return page(packages("Q", 10), 5), nil
	}

	res, err := h.svc.SyncOrders(ctx, h.tenant,
		RangeOf(date(time.January, 1), date(time.February, 20)), 20)
	require.NoError(t, err)

	assert.Equal(t, StatusQuotaExceeded, res.Status)
	require.NotNil(t, res.Quota)
	assert.Equal(t, int64(95), res.Quota.CurrentCountBeforeFetch)
	assert.Equal(t, 10, res.Quota.BatchNewlyInserted)
	assert.Equal(t, int64(100), res.Quota.Ceiling)
	assert.Len(t, h.fetcher.calls, 1, "no fetch after the violating page")
	assert.Equal(t, 0, res.WindowsDone)

	count, err := h.tracker.CurrentCount(ctx, h.tenant.ID, quota.MetricOrders)
	require.NoError(t, err)
	assert.Equal(t, int64(95), count, "increment must not be committed")

	stored, err := h.orders.Count(ctx, h.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stored, "persisted rows are kept")

	runs, err := h.history.List(ctx, h.tenant.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.SyncStatusQuotaExceeded, runs[0].Status)
}

func TestSyncOrdersKeepsRowsWrittenBeforeViolation(t *testing.T) {
	h := newHarness(t, ceiling{1: 5})
	ctx := context.Background()

	h.fetcher.respond = func(q marketplace.OrderQuery) (*marketplace.OrderPage, error) {
		return page(packages(fmt.Sprintf("W%d-P%d", q.StartDate, q.Page), 4), 3), nil
	}

	res, err := h.svc.SyncOrders(ctx, h.tenant,
		RangeOf(date(time.January, 1), date(time.January, 5)), 4)
	require.NoError(t, err)

	assert.Equal(t, StatusQuotaExceeded, res.Status)
	assert.Len(t, h.fetcher.calls, 2)
	assert.Equal(t, int64(4), res.Quota.CurrentCountBeforeFetch)
	assert.Equal(t, 8, res.NewlyInserted)

	count, err := h.tracker.CurrentCount(ctx, h.tenant.ID, quota.MetricOrders)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	stored, err := h.orders.Count(ctx, h.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), stored)
}

func TestSyncOrdersUpdatesAreNotCharged(t *testing.T) {
	h := newHarness(t, ceiling{1: 3})
	ctx := context.Background()

	h.fetcher.respond = func(marketplace.OrderQuery) (*marketplace.OrderPage, error) {
		return page(packages("U", 3), 1), nil
	}
	r := RangeOf(date(time.January, 1), date(time.January, 2))

	first, err := h.svc.SyncOrders(ctx, h.tenant, r, 10)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, first.Status)
	assert.Equal(t, 3, first.NewlyInserted)

	// at the ceiling now; a replay only refreshes known orders
	second, err := h.svc.SyncOrders(ctx, h.tenant, r, 10)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, second.Status)
	assert.Equal(t, 0, second.NewlyInserted)
	assert.Equal(t, 3, second.Updated)

	count, err := h.tracker.CurrentCount(ctx, h.tenant.ID, quota.MetricOrders)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSyncOrdersTransportErrorAborts(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	windows, err := Partition(RangeOf(date(time.January, 1), date(time.February, 20)), 14*day)
	require.NoError(t, err)

	h.fetcher.respond = func(q marketplace.OrderQuery) (*marketplace.OrderPage, error) {
		if q.StartDate == windows[1].Start {
			return nil, &marketplace.APIError{Method: http.MethodGet, Path: "/orders", StatusCode: http.StatusServiceUnavailable}
		}
		return page(packages(fmt.Sprintf("T%d", q.StartDate), 2), 1), nil
	}

	res, err := h.svc.SyncOrders(ctx, h.tenant, RangeOf(date(time.January, 1), date(time.February, 20)), 10)
	require.Error(t, err)

	var apiErr *marketplace.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)

	require.NotNil(t, res)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, 2, res.Success, "totals of the first window are preserved")
	assert.Equal(t, 1, res.WindowsDone)
	assert.Len(t, h.fetcher.calls, 2, "no window after the failing one is fetched")
	assert.NotEmpty(t, res.Error)

	runs, err := h.history.List(ctx, h.tenant.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.SyncStatusPartial, runs[0].Status)
}

func TestSyncOrdersCountsRowFailures(t *testing.T) {
	h := newHarness(t, nil)
	h.fetcher.respond = func(marketplace.OrderQuery) (*marketplace.OrderPage, error) {
		items := packages("F", 3)
		items[1].OrderNumber = ""
		return page(items, 1), nil
	}

	res, err := h.svc.SyncOrders(context.Background(), h.tenant,
		RangeOf(date(time.January, 1), date(time.January, 2)), 10)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, res.Success, res.NewlyInserted+res.Updated)
	require.Len(t, res.Failures, 1)
}

func TestSyncOrdersPublishesProgress(t *testing.T) {
	h := newHarness(t, nil)
	h.fetcher.respond = func(marketplace.OrderQuery) (*marketplace.OrderPage, error) {
		return page(packages("E", 1), 1), nil
	}

	_, err := h.svc.SyncOrders(context.Background(), h.tenant,
		RangeOf(date(time.January, 1), date(time.January, 2)), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{events.TypeSyncStarted, events.TypeSyncPage, events.TypeSyncFinished}, h.events.Types())
}

func TestSyncOrdersGatewayError(t *testing.T) {
	h := newHarness(t, nil)
	h.svc.gateway = func(*models.Tenant) (OrderFetcher, error) { return nil, errors.New("no credentials") }

	res, err := h.svc.SyncOrders(context.Background(), h.tenant,
		RangeOf(date(time.January, 1), date(time.January, 2)), 10)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, res.Status)
}

func TestSyncOrdersInvalidRange(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.SyncOrders(context.Background(), h.tenant, Range{Start: 5, End: 5}, 10)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestWindowExhausted(t *testing.T) {
	assert.True(t, windowExhausted(page(nil, 5), 10, 0))
	assert.True(t, windowExhausted(page(packages("x", 3), 5), 10, 0), "short page")
	assert.True(t, windowExhausted(page(packages("x", 10), 5), 10, 4), "last page")
	assert.False(t, windowExhausted(page(packages("x", 10), 5), 10, 3))
}
