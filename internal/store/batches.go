package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xelth-com/eckmarket/internal/database"
	"github.com/xelth-com/eckmarket/internal/models"
	"gorm.io/datatypes"
)

// BatchStore keeps an audit trail of bulk submissions
type BatchStore struct {
	db *database.DB
}

// NewBatchStore creates a batch store
func NewBatchStore(db *database.DB) *BatchStore {
	return &BatchStore{db: db}
}

// RecordSubmitted stores a freshly accepted submission
func (s *BatchStore) RecordSubmitted(ctx context.Context, b *models.BatchRequest) error {
	b.Status = models.BatchStatusSubmitted
	if b.SubmittedAt.IsZero() {
		b.SubmittedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("record batch %s: %w", b.BatchRequestID, err)
	}
	return nil
}

// RecordOutcome stores the reconciled result of a submission. items is encoded as JSON.
func (s *BatchStore) RecordOutcome(ctx context.Context, batchRequestID, status string, succeeded, failed int, items interface{}) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode batch %s items: %w", batchRequestID, err)
	}
	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).
		Model(&models.BatchRequest{}).
		Where("batch_request_id = ?", batchRequestID).
		Updates(map[string]interface{}{
			"status":          status,
			"succeeded_count": succeeded,
			"failed_count":    failed,
			"items":           datatypes.JSON(raw),
			"completed_at":    &now,
		}).Error; err != nil {
		return fmt.Errorf("update batch %s: %w", batchRequestID, err)
	}
	return nil
}

// Get returns one batch by platform id
func (s *BatchStore) Get(ctx context.Context, batchRequestID string) (*models.BatchRequest, error) {
	var b models.BatchRequest
	if err := s.db.WithContext(ctx).Where("batch_request_id = ?", batchRequestID).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}
