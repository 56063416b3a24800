package models

import "time"

// MarketplaceProduct holds the last price/inventory state confirmed by the platform
// for one barcode. It only changes after a batch result reports SUCCESS.
type MarketplaceProduct struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	TenantID  uint   `gorm:"not null;uniqueIndex:idx_tenant_barcode,priority:1" json:"tenantId"`
	Barcode   string `gorm:"size:64;not null;uniqueIndex:idx_tenant_barcode,priority:2" json:"barcode"`
	SalePrice float64 `json:"salePrice"`
	ListPrice float64 `json:"listPrice"`
	Quantity  int64   `json:"quantity"`

	LastBatchID string     `gorm:"size:64" json:"lastBatchId"`
	ConfirmedAt *time.Time `json:"confirmedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (MarketplaceProduct) TableName() string { return "marketplace_products" }
