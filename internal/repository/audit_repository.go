package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/healthpass/healthpass/internal/domain/audit"
)

var _ audit.Repository = (*AuditRepository)(nil)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, e *audit.Entry) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByAction(ctx context.Context, action audit.Action) ([]*audit.Entry, error) {
	var out []*audit.Entry
	err := r.db.WithContext(ctx).
		Where("action = ?", action).
		Order("occurred_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing audit entries by action %s: %w", action, err)
	}
	return out, nil
}

func (r *AuditRepository) ListBySubject(ctx context.Context, subjectType, subjectID string) ([]*audit.Entry, error) {
	var out []*audit.Entry
	err := r.db.WithContext(ctx).
		Where("subject_type = ? AND subject_id = ?", subjectType, subjectID).
		Order("occurred_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing audit entries for %s %s: %w", subjectType, subjectID, err)
	}
	return out, nil
}
