package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthpass/healthpass/internal/domain/audit"
	"github.com/healthpass/healthpass/internal/domain/patient"
)

type PatientService struct {
	repo     patient.Repository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewPatientService(repo patient.Repository, auditSvc *AuditService, log *zap.Logger) *PatientService {
	return &PatientService{repo: repo, auditSvc: auditSvc, log: log}
}

func (s *PatientService) RegisterPatient(ctx context.Context, cmd *patient.RegisterPatientCommand, actorID uuid.UUID) (*patient.Patient, error) {
	if err := validateRegisterCommand(cmd); err != nil {
		return nil, err
	}

	ref := patient.EncodeHealthCard(cmd.HealthCardNo)

	exists, err := s.repo.ExistsByHealthCardRef(ctx, ref)
	if err != nil {
		s.log.Error("failed to check health card uniqueness", zap.Error(err))
		return nil, fmt.Errorf("checking uniqueness: %w", err)
	}
	if exists {
		s.auditSvc.Record(ctx, audit.Entry{
			ActorID:     actorID,
			Action:      audit.ActionRegisterPatient,
			SubjectType: "patient",
			Outcome:     audit.OutcomeFailure,
			Reason:      patient.ErrAlreadyExists.Error(),
		})
		return nil, patient.ErrAlreadyExists
	}

	p := &patient.Patient{
		FirstName:     strings.TrimSpace(cmd.FirstName),
		LastName:      strings.TrimSpace(cmd.LastName),
		DateOfBirth:   cmd.DateOfBirth,
		HealthCardRef: ref,
		Phone:         strings.TrimSpace(cmd.Phone),
		Email:         strings.ToLower(strings.TrimSpace(cmd.Email)),
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to create patient", zap.Error(err))
		return nil, fmt.Errorf("creating patient: %w", err)
	}

	s.auditSvc.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      audit.ActionRegisterPatient,
		SubjectType: "patient",
		SubjectID:   p.ID.String(),
		Outcome:     audit.OutcomeSuccess,
	})

	s.log.Info("patient registered", zap.String("patient_id", p.ID.String()))
	return p, nil
}

func (s *PatientService) GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByHealthCard looks a patient up by the raw card number presented at the
// counter. The raw value is encoded before it touches storage.
func (s *PatientService) GetByHealthCard(ctx context.Context, healthCardNo string) (*patient.Patient, error) {
	if strings.TrimSpace(healthCardNo) == "" {
		return nil, &ValidationError{Fields: []string{"health_card_no is required"}}
	}
	return s.repo.GetByHealthCardRef(ctx, patient.EncodeHealthCard(healthCardNo))
}

// UpdateContact amends phone and/or email through the repository so the
// change is durable before any retry that depends on it.
func (s *PatientService) UpdateContact(ctx context.Context, id uuid.UUID, cmd *patient.UpdateContactCommand, actorID uuid.UUID) (*patient.Patient, error) {
	p, err := s.repo.UpdateContact(ctx, id, cmd)
	if err != nil {
		return nil, err
	}

	s.auditSvc.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      audit.ActionUpdateContact,
		SubjectType: "patient",
		SubjectID:   id.String(),
		Outcome:     audit.OutcomeSuccess,
	})

	return p, nil
}

func validateRegisterCommand(cmd *patient.RegisterPatientCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.HealthCardNo) == "" {
		errs = append(errs, "health_card_no is required")
	}
	if strings.TrimSpace(cmd.FirstName) == "" {
		errs = append(errs, "first_name is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		errs = append(errs, "last_name is required")
	}
	if cmd.DateOfBirth.IsZero() {
		errs = append(errs, "date_of_birth is required")
	}
	if cmd.DateOfBirth.After(time.Now()) {
		errs = append(errs, "date_of_birth cannot be in the future")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
