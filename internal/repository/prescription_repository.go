package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/healthpass/healthpass/internal/domain/prescription"
)

var _ prescription.Repository = (*PrescriptionRepository)(nil)

type PrescriptionRepository struct {
	db *gorm.DB
}

func NewPrescriptionRepository(db *gorm.DB) *PrescriptionRepository {
	return &PrescriptionRepository{db: db}
}

func (r *PrescriptionRepository) Create(ctx context.Context, p *prescription.Prescription) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("inserting prescription: %w", err)
	}
	return nil
}

func (r *PrescriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	var p prescription.Prescription
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, prescription.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching prescription %s: %w", id, err)
	}
	return &p, nil
}

func (r *PrescriptionRepository) Update(ctx context.Context, p *prescription.Prescription) error {
	res := r.db.WithContext(ctx).Model(p).Select("*").Omit("id", "created_at").Updates(p)
	if res.Error != nil {
		return fmt.Errorf("updating prescription %s: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return prescription.ErrNotFound
	}
	return nil
}

func (r *PrescriptionRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*prescription.Prescription, error) {
	var out []*prescription.Prescription
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing prescriptions for patient %s: %w", patientID, err)
	}
	return out, nil
}

func (r *PrescriptionRepository) ListByStatus(ctx context.Context, status prescription.Status) ([]*prescription.Prescription, error) {
	var out []*prescription.Prescription
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("dispensed_at DESC NULLS LAST, created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing prescriptions by status %s: %w", status, err)
	}
	return out, nil
}

func (r *PrescriptionRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&prescription.Prescription{}).
		Where("pickup_code = ? AND status IN ?", code,
			[]prescription.Status{prescription.StatusCodeIssued, prescription.StatusNotified}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking pickup code uniqueness: %w", err)
	}
	return count > 0, nil
}

func (r *PrescriptionRepository) ListActiveExpiredBefore(ctx context.Context, cutoff time.Time) ([]*prescription.Prescription, error) {
	var out []*prescription.Prescription
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", prescription.ActiveStatuses, cutoff).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing lapsed prescriptions: %w", err)
	}
	return out, nil
}
