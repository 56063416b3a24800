package models

import (
	"time"

	"gorm.io/datatypes"
)

// Batch request lifecycle
const (
	BatchStatusSubmitted  = "submitted"
	BatchStatusCompleted  = "completed"
	BatchStatusPollFailed = "poll_failed"
)

// BatchRequest records one bulk submission to the platform and its reconciled outcome.
type BatchRequest struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	TenantID       uint           `gorm:"not null;index" json:"tenantId"`
	RunID          string         `gorm:"size:36;index" json:"runId"`
	BatchRequestID string         `gorm:"size:64;uniqueIndex;not null" json:"batchRequestId"`
	ItemCount      int            `json:"itemCount"`
	SucceededCount int            `json:"succeededCount"`
	FailedCount    int            `json:"failedCount"`
	Status         string         `gorm:"size:16;index" json:"status"`
	Items          datatypes.JSON `json:"items"`
	SubmittedAt    time.Time      `json:"submittedAt"`
	CompletedAt    *time.Time     `json:"completedAt"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func (BatchRequest) TableName() string { return "batch_requests" }
