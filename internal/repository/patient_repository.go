package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/healthpass/healthpass/internal/domain/patient"
)

var _ patient.Repository = (*PatientRepository)(nil)

type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return patient.ErrAlreadyExists
		}
		return fmt.Errorf("inserting patient: %w", err)
	}
	return nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, patient.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching patient %s: %w", id, err)
	}
	return &p, nil
}

func (r *PatientRepository) GetByHealthCardRef(ctx context.Context, ref string) (*patient.Patient, error) {
	var p patient.Patient
	err := r.db.WithContext(ctx).First(&p, "health_card_ref = ?", ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, patient.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching patient by card ref: %w", err)
	}
	return &p, nil
}

func (r *PatientRepository) UpdateContact(ctx context.Context, id uuid.UUID, cmd *patient.UpdateContactCommand) (*patient.Patient, error) {
	updates := map[string]any{}
	if cmd.Phone != nil {
		updates["phone"] = *cmd.Phone
	}
	if cmd.Email != nil {
		updates["email"] = *cmd.Email
	}
	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&patient.Patient{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("updating patient contact: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, patient.ErrNotFound
		}
	}
	return r.GetByID(ctx, id)
}

func (r *PatientRepository) ExistsByHealthCardRef(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&patient.Patient{}).
		Where("health_card_ref = ?", ref).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking health card uniqueness: %w", err)
	}
	return count > 0, nil
}
