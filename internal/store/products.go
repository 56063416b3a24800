package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xelth-com/eckmarket/internal/database"
	"github.com/xelth-com/eckmarket/internal/models"
	"gorm.io/gorm/clause"
)

// PriceInventoryChange is a platform-confirmed change for one barcode.
// Nil fields keep their stored value.
type PriceInventoryChange struct {
	Barcode   string
	SalePrice *float64
	ListPrice *float64
	Quantity  *int64
	BatchID   string
}

// ProductStore keeps the locally confirmed price/stock state per barcode
type ProductStore struct {
	db  *database.DB
	now func() time.Time
}

// NewProductStore creates a product store
func NewProductStore(db *database.DB) *ProductStore {
	return &ProductStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// ApplyPriceInventory upserts the confirmed fields of one barcode
func (s *ProductStore) ApplyPriceInventory(ctx context.Context, tenantID uint, change PriceInventoryChange) error {
	if change.Barcode == "" {
		return errors.New("barcode is empty")
	}

	now := s.now()
	p := models.MarketplaceProduct{
		TenantID:    tenantID,
		Barcode:     change.Barcode,
		LastBatchID: change.BatchID,
		ConfirmedAt: &now,
	}
	columns := []string{"last_batch_id", "confirmed_at", "updated_at"}
	if change.SalePrice != nil {
		p.SalePrice = *change.SalePrice
		columns = append(columns, "sale_price")
	}
	if change.ListPrice != nil {
		p.ListPrice = *change.ListPrice
		columns = append(columns, "list_price")
	}
	if change.Quantity != nil {
		p.Quantity = *change.Quantity
		columns = append(columns, "quantity")
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "barcode"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&p).Error; err != nil {
		return fmt.Errorf("save product %s: %w", change.Barcode, err)
	}
	return nil
}

// Get returns the stored state of one barcode
func (s *ProductStore) Get(ctx context.Context, tenantID uint, barcode string) (*models.MarketplaceProduct, error) {
	var p models.MarketplaceProduct
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND barcode = ?", tenantID, barcode).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
