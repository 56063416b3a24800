package store

import (
	"context"
	"fmt"

	"github.com/xelth-com/eckmarket/internal/database"
	"github.com/xelth-com/eckmarket/internal/models"
)

// HistoryStore records one row per synchronization run
type HistoryStore struct {
	db *database.DB
}

// NewHistoryStore creates a history store
func NewHistoryStore(db *database.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Record persists a finished run
func (s *HistoryStore) Record(ctx context.Context, h *models.SyncHistory) error {
	if err := s.db.WithContext(ctx).Create(h).Error; err != nil {
		return fmt.Errorf("record sync history %s: %w", h.RunID, err)
	}
	return nil
}

// List returns the most recent runs, newest first. tenantID 0 lists every tenant.
func (s *HistoryStore) List(ctx context.Context, tenantID uint, limit int) ([]models.SyncHistory, error) {
	if limit <= 0 || limit > 500 {
		limit = 30
	}

	var history []models.SyncHistory
	query := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit)
	if tenantID != 0 {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if err := query.Find(&history).Error; err != nil {
		return nil, fmt.Errorf("list sync history: %w", err)
	}
	return history, nil
}
