package models

import "time"

// Tenant is a marketplace seller account on whose behalf sync runs.
type Tenant struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"not null" json:"name"`
	SupplierID   string `gorm:"size:64;uniqueIndex;not null" json:"supplierId"`
	APIKey       string `gorm:"not null" json:"-"`
	APISecretEnc string `gorm:"type:text;not null" json:"-"` // sealed with utils.SecretBox

	Plan string `gorm:"size:32;default:standard" json:"plan"`
	// MonthlyOrderLimit caps newly ingested orders per calendar month; nil means unlimited
	MonthlyOrderLimit *int64 `json:"monthlyOrderLimit"`
	Active            bool   `gorm:"default:true;index" json:"active"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Tenant) TableName() string { return "tenants" }
