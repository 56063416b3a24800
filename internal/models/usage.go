package models

import "time"

// UsageCounter is the running count of a metered resource for one tenant and period.
type UsageCounter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  uint      `gorm:"not null;uniqueIndex:idx_usage_period,priority:1" json:"tenantId"`
	Metric    string    `gorm:"size:32;not null;uniqueIndex:idx_usage_period,priority:2" json:"metric"`
	Period    string    `gorm:"size:7;not null;uniqueIndex:idx_usage_period,priority:3" json:"period"` // YYYY-MM
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (UsageCounter) TableName() string { return "usage_counters" }
