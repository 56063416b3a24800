package models

import (
	"time"

	"gorm.io/datatypes"
)

// Marketplace shipment package statuses as reported by the platform
const (
	OrderStatusCreated   = "Created"
	OrderStatusPicking   = "Picking"
	OrderStatusInvoiced  = "Invoiced"
	OrderStatusShipped   = "Shipped"
	OrderStatusDelivered = "Delivered"
	OrderStatusCancelled = "Cancelled"
	OrderStatusReturned  = "Returned"
)

// MarketplaceOrder is one order pulled from the marketplace platform.
// (TenantID, OrderNumber) is the natural key; everything else is overwritten on every sync.
//
// The row holds one shipment package per order number. When the platform
// splits an order into several packages, the package processed last wins
// PackageID, Lines and RawPayload, and the order counts once against quota.
type MarketplaceOrder struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	TenantID    uint   `gorm:"not null;uniqueIndex:idx_tenant_order,priority:1" json:"tenantId"`
	OrderNumber string `gorm:"size:64;not null;uniqueIndex:idx_tenant_order,priority:2" json:"orderNumber"`

	PackageID           int64     `gorm:"index" json:"packageId"`
	Status              string    `gorm:"size:32;index" json:"status"`
	CargoProvider       string    `gorm:"size:64" json:"cargoProvider"`
	CargoTrackingNumber string    `gorm:"size:64;index" json:"cargoTrackingNumber"`
	CustomerName        string    `json:"customerName"`
	TotalPrice          float64   `json:"totalPrice"`
	Currency            string    `gorm:"size:8;default:TRY" json:"currency"`
	OrderDate           time.Time `json:"orderDate"`
	LastModifiedAt      time.Time `gorm:"index" json:"lastModifiedAt"`

	Lines      datatypes.JSON `json:"lines"`
	RawPayload datatypes.JSON `json:"-"`

	FirstSeenAt  time.Time `gorm:"not null" json:"firstSeenAt"`
	LastSyncedAt time.Time `gorm:"not null" json:"lastSyncedAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (MarketplaceOrder) TableName() string { return "marketplace_orders" }

// MutableOrderColumns lists the columns an upsert is allowed to overwrite.
var MutableOrderColumns = []string{
	"package_id",
	"status",
	"cargo_provider",
	"cargo_tracking_number",
	"customer_name",
	"total_price",
	"currency",
	"order_date",
	"last_modified_at",
	"lines",
	"raw_payload",
	"last_synced_at",
}

// OrderLine is the JSON shape stored in MarketplaceOrder.Lines
type OrderLine struct {
	Barcode     string  `json:"barcode"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}
