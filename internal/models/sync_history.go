package models

import (
	"time"
)

// Sync run kinds
const (
	SyncKindOrders     = "orders"
	SyncKindBulkUpdate = "bulk_update"
)

// Sync run statuses
const (
	SyncStatusSuccess       = "success"
	SyncStatusError         = "error"
	SyncStatusPartial       = "partial"
	SyncStatusQuotaExceeded = "quota_exceeded"
)

// SyncHistory records each synchronization run against the marketplace
type SyncHistory struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID       string     `gorm:"column:run_id;size:36;uniqueIndex" json:"runId"`
	TenantID    uint       `gorm:"column:tenant_id;not null;index" json:"tenantId"`
	Provider    string     `gorm:"column:provider;not null;index" json:"provider"`
	Kind        string     `gorm:"column:kind;not null;index" json:"kind"`
	Status      string     `gorm:"column:status;not null;index" json:"status"`
	StartedAt   time.Time  `gorm:"column:started_at;not null" json:"startedAt"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completedAt"`
	Duration    int64      `gorm:"column:duration;default:0" json:"duration"` // milliseconds
	Processed   int        `gorm:"column:processed;default:0" json:"processed"`
	Created     int        `gorm:"column:created;default:0" json:"created"`
	Updated     int        `gorm:"column:updated;default:0" json:"updated"`
	Errors      int        `gorm:"column:errors;default:0" json:"errors"`
	ErrorDetail string     `gorm:"column:error_detail;type:text" json:"errorDetail"`
	DebugInfo   JSONB      `gorm:"column:debug_info" json:"debugInfo"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"-"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"-"`
}

// TableName specifies the table name
func (SyncHistory) TableName() string {
	return "sync_history"
}
