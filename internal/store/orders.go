package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xelth-com/eckmarket/internal/database"
	"github.com/xelth-com/eckmarket/internal/models"
	"gorm.io/gorm"
)

// SaveResult is the outcome of persisting one page of orders.
// Success = NewlyInserted + Updated and Success + Failed = number of items passed in.
type SaveResult struct {
	Success       int           `json:"success"`
	Failed        int           `json:"failed"`
	NewlyInserted int           `json:"newlyInserted"`
	Updated       int           `json:"updated"`
	Failures      []RecordError `json:"failures,omitempty"`
}

// RecordError describes one row that could not be written
type RecordError struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// Add accumulates another result into r
func (r *SaveResult) Add(o SaveResult) {
	r.Success += o.Success
	r.Failed += o.Failed
	r.NewlyInserted += o.NewlyInserted
	r.Updated += o.Updated
	r.Failures = append(r.Failures, o.Failures...)
}

// OrderStore persists marketplace orders keyed by (tenant, order number)
type OrderStore struct {
	db  *database.DB
	now func() time.Time
}

// NewOrderStore creates an order store
func NewOrderStore(db *database.DB) *OrderStore {
	return &OrderStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// UpsertMany inserts unseen orders and overwrites the mutable fields of known ones.
// Items are written independently: one failing row does not block its siblings.
// Replaying the same items yields only updates.
func (s *OrderStore) UpsertMany(ctx context.Context, tenantID uint, orders []models.MarketplaceOrder) SaveResult {
	var res SaveResult

	for i := range orders {
		o := orders[i]
		o.ID = 0
		o.TenantID = tenantID

		inserted, err := s.upsertOne(ctx, &o)
		if err != nil {
			res.Failed++
			res.Failures = append(res.Failures, RecordError{Key: o.OrderNumber, Reason: err.Error()})
			continue
		}

		res.Success++
		if inserted {
			res.NewlyInserted++
		} else {
			res.Updated++
		}
	}

	return res
}

func (s *OrderStore) upsertOne(ctx context.Context, o *models.MarketplaceOrder) (bool, error) {
	if o.OrderNumber == "" {
		return false, errors.New("order number is empty")
	}

	now := s.now()
	o.LastSyncedAt = now

	var existing models.MarketplaceOrder
	err := s.db.WithContext(ctx).
		Select("id").
		Where("tenant_id = ? AND order_number = ?", o.TenantID, o.OrderNumber).
		Take(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		o.FirstSeenAt = now
		if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
			return false, fmt.Errorf("insert order %s: %w", o.OrderNumber, err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("lookup order %s: %w", o.OrderNumber, err)
	}

	if err := s.db.WithContext(ctx).
		Model(&models.MarketplaceOrder{}).
		Where("id = ?", existing.ID).
		Select(models.MutableOrderColumns).
		Updates(o).Error; err != nil {
		return false, fmt.Errorf("update order %s: %w", o.OrderNumber, err)
	}
	return false, nil
}

// Get returns one order by natural key
func (s *OrderStore) Get(ctx context.Context, tenantID uint, orderNumber string) (*models.MarketplaceOrder, error) {
	var o models.MarketplaceOrder
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND order_number = ?", tenantID, orderNumber).
		First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// Count returns how many orders a tenant has stored
func (s *OrderStore) Count(ctx context.Context, tenantID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.MarketplaceOrder{}).Where("tenant_id = ?", tenantID).Count(&n).Error
	return n, err
}
