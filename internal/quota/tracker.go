// Package quota tracks metered tenant resources against their plan ceilings.
//
// Checking and committing are separate calls: the caller commits an
// increment only after the rows it counts are durably stored, so a crash in between leaves
// the counter behind the truth, never ahead of it.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xelth-com/eckmarket/internal/database"
	"github.com/xelth-com/eckmarket/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MetricOrders counts orders ingested for the first time in a period
const MetricOrders = "orders"

var (
	// ErrExceeded matches every *ExceededError via errors.Is
	ErrExceeded = errors.New("quota exceeded")
	// ErrRegression is returned for a negative increment
	ErrRegression = errors.New("quota counter cannot move backwards")
)

// ExceededError carries the ceiling and the rejected prospective total
type ExceededError struct {
	TenantID    uint
	Metric      string
	Period      string
	Ceiling     int64
	Prospective int64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for tenant %d: %s %d > ceiling %d in %s",
		e.TenantID, e.Metric, e.Prospective, e.Ceiling, e.Period)
}

func (e *ExceededError) Is(target error) bool {
	return target == ErrExceeded
}

// LimitResolver returns the plan ceiling of a metric; nil means unlimited
type LimitResolver interface {
	Limit(ctx context.Context, tenantID uint, metric string) (*int64, error)
}

// Tracker stores per-tenant, per-month counters
type Tracker struct {
	db     *database.DB
	limits LimitResolver
	now    func() time.Time
}

// NewTracker creates a quota tracker
func NewTracker(db *database.DB, limits LimitResolver) *Tracker {
	return &Tracker{db: db, limits: limits, now: time.Now}
}

// Period returns the accounting period containing t (UTC calendar month)
func Period(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// CurrentCount returns the counter of the active period
func (t *Tracker) CurrentCount(ctx context.Context, tenantID uint, metric string) (int64, error) {
	var counter models.UsageCounter
	err := t.db.WithContext(ctx).
		Where("tenant_id = ? AND metric = ? AND period = ?", tenantID, metric, Period(t.now())).
		Take(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s counter of tenant %d: %w", metric, tenantID, err)
	}
	return counter.Count, nil
}

// Ceiling returns the plan ceiling of a metric, nil when unlimited
func (t *Tracker) Ceiling(ctx context.Context, tenantID uint, metric string) (*int64, error) {
	if t.limits == nil {
		return nil, nil
	}
	return t.limits.Limit(ctx, tenantID, metric)
}

// CheckAndReserve validates prospectiveTotal against the ceiling without changing
// the counter. It returns an *ExceededError when the total would cross the ceiling.
func (t *Tracker) CheckAndReserve(ctx context.Context, tenantID uint, metric string, prospectiveTotal int64) error {
	ceiling, err := t.Ceiling(ctx, tenantID, metric)
	if err != nil {
		return fmt.Errorf("resolve %s ceiling of tenant %d: %w", metric, tenantID, err)
	}
	if ceiling != nil && prospectiveTotal > *ceiling {
		return &ExceededError{
			TenantID:    tenantID,
			Metric:      metric,
			Period:      Period(t.now()),
			Ceiling:     *ceiling,
			Prospective: prospectiveTotal,
		}
	}
	return nil
}

// Commit adds increment to the counter of the active period. The ceiling is checked
// in the same UPDATE that moves the counter, so concurrent commits cannot together
// cross it; the losing commit gets an *ExceededError and changes nothing.
func (t *Tracker) Commit(ctx context.Context, tenantID uint, metric string, increment int64) error {
	if increment < 0 {
		return fmt.Errorf("%w: increment %d", ErrRegression, increment)
	}
	if increment == 0 {
		return nil
	}
	ceiling, err := t.Ceiling(ctx, tenantID, metric)
	if err != nil {
		return fmt.Errorf("resolve %s ceiling of tenant %d: %w", metric, tenantID, err)
	}
	period := Period(t.now())

	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.UsageCounter{TenantID: tenantID, Metric: metric, Period: period}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return fmt.Errorf("create %s counter of tenant %d: %w", metric, tenantID, err)
		}

		q := tx.Model(&models.UsageCounter{}).
			Where("tenant_id = ? AND metric = ? AND period = ?", tenantID, metric, period)
		if ceiling != nil {
			q = q.Where("count + ? <= ?", increment, *ceiling)
		}
		res := q.Update("count", gorm.Expr("count + ?", increment))
		if res.Error != nil {
			return fmt.Errorf("commit %s counter of tenant %d: %w", metric, tenantID, res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}
		if ceiling == nil {
			return fmt.Errorf("commit %s counter of tenant %d: no row updated", metric, tenantID)
		}

		var counter models.UsageCounter
		if err := tx.Where("tenant_id = ? AND metric = ? AND period = ?", tenantID, metric, period).
			Take(&counter).Error; err != nil {
			return fmt.Errorf("read %s counter of tenant %d: %w", metric, tenantID, err)
		}
		return &ExceededError{
			TenantID:    tenantID,
			Metric:      metric,
			Period:      period,
			Ceiling:     *ceiling,
			Prospective: counter.Count + increment,
		}
	})
}
