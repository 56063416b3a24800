package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/eckmarket/internal/testutil"
)

type staticLimits map[uint]int64

func (s staticLimits) Limit(_ context.Context, tenantID uint, metric string) (*int64, error) {
	if metric != MetricOrders {
		return nil, nil
	}
	v, ok := s[tenantID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func newTracker(t *testing.T, limits LimitResolver) *Tracker {
	t.Helper()
	tr := NewTracker(testutil.NewDB(t), limits)
	tr.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	return tr
}

func TestPeriod(t *testing.T) {
	assert.Equal(t, "2024-01", Period(time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, "2024-02", Period(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCurrentCountStartsAtZero(t *testing.T) {
	tr := newTracker(t, nil)
	n, err := tr.CurrentCount(context.Background(), 1, MetricOrders)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCommitAddsIncrements(t *testing.T) {
	tr := newTracker(t, nil)
	ctx := context.Background()

	require.NoError(t, tr.Commit(ctx, 1, MetricOrders, 10))
	require.NoError(t, tr.Commit(ctx, 1, MetricOrders, 15))
	require.NoError(t, tr.Commit(ctx, 1, MetricOrders, 0))

	err := tr.Commit(ctx, 1, MetricOrders, -5)
	assert.ErrorIs(t, err, ErrRegression)

	n, err := tr.CurrentCount(ctx, 1, MetricOrders)
	require.NoError(t, err)
	assert.Equal(t, int64(25), n)
}

func TestCountersAreScopedPerTenantAndPeriod(t *testing.T) {
	tr := newTracker(t, nil)
	ctx := context.Background()

	require.NoError(t, tr.Commit(ctx, 1, MetricOrders, 7))
	n, err := tr.CurrentCount(ctx, 2, MetricOrders)
	require.NoError(t, err)
	assert.Zero(t, n)

	tr.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }
	n, err = tr.CurrentCount(ctx, 1, MetricOrders)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCheckAndReserve(t *testing.T) {
	tr := newTracker(t, staticLimits{1: 100})
	ctx := context.Background()

	assert.NoError(t, tr.CheckAndReserve(ctx, 1, MetricOrders, 100))

	err := tr.CheckAndReserve(ctx, 1, MetricOrders, 105)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExceeded))

	var exceeded *ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, int64(100), exceeded.Ceiling)
	assert.Equal(t, int64(105), exceeded.Prospective)
	assert.Equal(t, "2024-03", exceeded.Period)

	// unlimited tenant
	assert.NoError(t, tr.CheckAndReserve(ctx, 2, MetricOrders, 1_000_000))

	// check does not move the counter
	n, err := tr.CurrentCount(ctx, 1, MetricOrders)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCommitRespectsCeiling(t *testing.T) {
	tr := newTracker(t, staticLimits{1: 50})
	ctx := context.Background()

	require.NoError(t, tr.Commit(ctx, 1, MetricOrders, 45))
	err := tr.Commit(ctx, 1, MetricOrders, 6)
	require.ErrorIs(t, err, ErrExceeded)

	var exceeded *ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, int64(51), exceeded.Prospective)

	require.NoError(t, tr.Commit(ctx, 1, MetricOrders, 5))
	n, err := tr.CurrentCount(ctx, 1, MetricOrders)
	require.NoError(t, err)
	assert.Equal(t, int64(50), n)
}

// Two callers that both validated against the same stale count must not be able to
// push the counter past the ceiling together, and neither increment may be lost.
func TestCommitOverlappingCallersKeepCeiling(t *testing.T) {
	tr := newTracker(t, staticLimits{1: 8, 2: 100})
	ctx := context.Background()

	before, err := tr.CurrentCount(ctx, 1, MetricOrders)
	require.NoError(t, err)
	require.NoError(t, tr.CheckAndReserve(ctx, 1, MetricOrders, before+5))
	require.NoError(t, tr.CheckAndReserve(ctx, 1, MetricOrders, before+5))

	require.NoError(t, tr.Commit(ctx, 1, MetricOrders, 5))
	assert.ErrorIs(t, tr.Commit(ctx, 1, MetricOrders, 5), ErrExceeded)

	n, err := tr.CurrentCount(ctx, 1, MetricOrders)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tr.Commit(ctx, 2, MetricOrders, 3))
		}()
	}
	wg.Wait()

	n, err = tr.CurrentCount(ctx, 2, MetricOrders)
	require.NoError(t, err)
	assert.Equal(t, int64(30), n)
}
