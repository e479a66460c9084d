package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"wellness-sessions/internal/model"
)

type SessionEventRepository struct {
	db *gorm.DB
}

func NewSessionEventRepository(db *gorm.DB) *SessionEventRepository {
	return &SessionEventRepository{db: db}
}

func (r *SessionEventRepository) Create(ctx context.Context, event *model.SessionEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("create session event failed: %w", err)
	}
	return nil
}

func (r *SessionEventRepository) ListBySessionID(ctx context.Context, sessionID string, limit int) ([]model.SessionEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var events []model.SessionEvent
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("occurred_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list session events failed: %w", err)
	}
	return events, nil
}
