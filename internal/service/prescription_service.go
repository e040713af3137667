package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthpass/healthpass/internal/config"
	"github.com/healthpass/healthpass/internal/domain/audit"
	"github.com/healthpass/healthpass/internal/domain/patient"
	"github.com/healthpass/healthpass/internal/domain/prescription"
	"github.com/healthpass/healthpass/internal/notify"
	"github.com/healthpass/healthpass/internal/qr"
)

// maxCodeAttempts bounds collision retries when drawing a pickup code.
// Hitting the bound means the code space is exhausted or the active-code
// lookup is broken; either way the operation fails hard.
const maxCodeAttempts = 5

type PrescriptionService struct {
	repo        prescription.Repository
	patientRepo patient.Repository
	auditSvc    *AuditService
	provider    qr.Provider
	store       *qr.Store
	notifier    notify.Notifier
	log         *zap.Logger

	now func() time.Time
}

func NewPrescriptionService(
	repo prescription.Repository,
	patientRepo patient.Repository,
	auditSvc *AuditService,
	provider qr.Provider,
	store *qr.Store,
	notifier notify.Notifier,
	log *zap.Logger,
) *PrescriptionService {
	return &PrescriptionService{
		repo:        repo,
		patientRepo: patientRepo,
		auditSvc:    auditSvc,
		provider:    provider,
		store:       store,
		notifier:    notifier,
		log:         log,
		now:         time.Now,
	}
}

// Get applies the lazy expiry check before returning the prescription.
func (s *PrescriptionService) Get(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Status.IsTerminal() && p.IsExpired(s.now()) {
		p.Status = prescription.StatusExpired
		if err := s.repo.Update(ctx, p); err != nil {
			return nil, fmt.Errorf("lapsing expired prescription: %w", err)
		}
	}
	return p, nil
}

func (s *PrescriptionService) CreatePrescription(ctx context.Context, cmd *prescription.CreatePrescriptionCommand) (*prescription.Prescription, error) {
	if err := validatePrescriptionCommand(cmd); err != nil {
		return nil, err
	}

	if _, err := s.patientRepo.GetByID(ctx, cmd.PatientID); err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			s.auditSvc.Record(ctx, audit.Entry{
				ActorID:     cmd.DoctorID,
				Action:      audit.ActionCreatePrescription,
				SubjectType: "patient",
				SubjectID:   cmd.PatientID.String(),
				Outcome:     audit.OutcomeFailure,
				Reason:      err.Error(),
			})
		}
		return nil, fmt.Errorf("verifying patient: %w", err)
	}

	now := s.now()
	p := &prescription.Prescription{
		PatientID:    cmd.PatientID,
		DoctorID:     cmd.DoctorID,
		Medication:   strings.TrimSpace(cmd.Medication),
		Dosage:       strings.TrimSpace(cmd.Dosage),
		Instructions: strings.TrimSpace(cmd.Instructions),
		ExpiresAt:    now.Add(cmd.Validity),
		Status:       prescription.StatusCreated,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to create prescription", zap.Error(err))
		return nil, fmt.Errorf("creating prescription: %w", err)
	}

	s.auditSvc.Record(ctx, audit.Entry{
		ActorID:     cmd.DoctorID,
		Action:      audit.ActionCreatePrescription,
		SubjectType: "prescription",
		SubjectID:   p.ID.String(),
		Outcome:     audit.OutcomeSuccess,
		Detail:      fmt.Sprintf("patient_id=%s", cmd.PatientID),
	})

	s.log.Info("prescription created",
		zap.String("prescription_id", p.ID.String()),
		zap.String("patient_id", cmd.PatientID.String()),
		zap.Time("expires_at", p.ExpiresAt),
	)

	return p, nil
}

// IssuePickupCode assigns a unique active code and moves created → code_issued.
func (s *PrescriptionService) IssuePickupCode(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*prescription.Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.lapseIfExpired(ctx, p, audit.ActionIssueCode, actorID); err != nil {
		return nil, err
	}

	if p.Status != prescription.StatusCreated {
		s.recordFailure(ctx, actorID, audit.ActionIssueCode, p.ID,
			fmt.Sprintf("status is %s, want %s", p.Status, prescription.StatusCreated))
		return nil, fmt.Errorf("%w: status is %s", prescription.ErrInvalidState, p.Status)
	}

	code, err := s.uniqueActiveCode(ctx)
	if err != nil {
		s.recordFailure(ctx, actorID, audit.ActionIssueCode, p.ID, err.Error())
		return nil, err
	}

	p.PickupCode = &code
	p.Status = prescription.StatusCodeIssued
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("assigning pickup code: %w", err)
	}

	s.auditSvc.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      audit.ActionIssueCode,
		SubjectType: "prescription",
		SubjectID:   p.ID.String(),
		Outcome:     audit.OutcomeSuccess,
	})

	s.log.Info("pickup code issued", zap.String("prescription_id", p.ID.String()))
	return p, nil
}

// RequestQR renders the prescription/code pair through the external provider
// and stores the artifact. Idempotent: re-invoking with an unchanged code
// overwrites the same artifact and leaves prescription state alone. A
// provider failure does not roll back code issuance.
func (s *PrescriptionService) RequestQR(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*prescription.Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.lapseIfExpired(ctx, p, audit.ActionRequestQR, actorID); err != nil {
		return nil, err
	}

	if p.Status.IsTerminal() {
		s.recordFailure(ctx, actorID, audit.ActionRequestQR, p.ID,
			fmt.Sprintf("status is %s", p.Status))
		return nil, fmt.Errorf("%w: status is %s", prescription.ErrInvalidState, p.Status)
	}
	if p.PickupCode == nil {
		s.recordFailure(ctx, actorID, audit.ActionRequestQR, p.ID, prescription.ErrNoPickupCode.Error())
		return nil, prescription.ErrNoPickupCode
	}

	payload := fmt.Sprintf("%s:%s", p.ID, *p.PickupCode)
	png, err := s.provider.Render(ctx, payload)
	if err != nil {
		s.recordFailure(ctx, actorID, audit.ActionRequestQR, p.ID, err.Error())
		return nil, fmt.Errorf("rendering qr: %w", err)
	}

	path, err := s.store.Write(p.ID, *p.PickupCode, png)
	if err != nil {
		s.recordFailure(ctx, actorID, audit.ActionRequestQR, p.ID, err.Error())
		return nil, fmt.Errorf("storing qr artifact: %w", err)
	}

	p.QRPath = path
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("recording qr artifact path: %w", err)
	}

	s.auditSvc.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      audit.ActionRequestQR,
		SubjectType: "prescription",
		SubjectID:   p.ID.String(),
		Outcome:     audit.OutcomeSuccess,
		Detail:      fmt.Sprintf("path=%s", path),
	})

	return p, nil
}

// Notify tells the patient their prescription is ready. Re-notification is
// permitted; the code_issued → notified transition happens on first success.
func (s *PrescriptionService) Notify(ctx context.Context, id uuid.UUID, attachQR bool, actorID uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.lapseIfExpired(ctx, p, audit.ActionNotify, actorID); err != nil {
		return err
	}

	if !p.CanDispense() {
		s.recordFailure(ctx, actorID, audit.ActionNotify, p.ID,
			fmt.Sprintf("status is %s", p.Status))
		return fmt.Errorf("%w: status is %s", prescription.ErrInvalidState, p.Status)
	}

	pat, err := s.patientRepo.GetByID(ctx, p.PatientID)
	if err != nil {
		return fmt.Errorf("resolving patient: %w", err)
	}

	contact := s.contactFor(pat)
	if contact == "" {
		s.recordFailure(ctx, actorID, audit.ActionNotify, p.ID,
			fmt.Sprintf("no %s contact on file", s.notifier.Channel()))
		return patient.ErrMissingContact
	}

	msg := s.pickupMessage(p, pat, attachQR)
	if err := s.notifier.Send(ctx, contact, msg); err != nil {
		s.recordFailure(ctx, actorID, audit.ActionNotify, p.ID, err.Error())
		return fmt.Errorf("sending notification: %w", err)
	}

	if p.Status == prescription.StatusCodeIssued {
		p.Status = prescription.StatusNotified
		if err := s.repo.Update(ctx, p); err != nil {
			// The message already went out; the trail must say so even though
			// the state transition did not stick.
			s.recordFailure(ctx, actorID, audit.ActionNotify, p.ID,
				fmt.Sprintf("message sent but state not recorded: %v", err))
			return fmt.Errorf("recording notification: %w", err)
		}
	}

	s.auditSvc.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      audit.ActionNotify,
		SubjectType: "prescription",
		SubjectID:   p.ID.String(),
		Outcome:     audit.OutcomeSuccess,
		Detail:      fmt.Sprintf("channel=%s;qr_attached=%t", s.notifier.Channel(), attachQR && p.QRPath != ""),
	})

	return nil
}

// Dispense validates the supplied code and releases the medication. The
// expiry check always runs before code validation: a correct code on an
// expired prescription still fails.
func (s *PrescriptionService) Dispense(ctx context.Context, id uuid.UUID, suppliedCode string, pharmacistID uuid.UUID) (*prescription.Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.lapseIfExpired(ctx, p, audit.ActionDispense, pharmacistID); err != nil {
		return nil, err
	}

	if p.Status == prescription.StatusExpired {
		s.recordFailure(ctx, pharmacistID, audit.ActionDispense, p.ID, prescription.ErrExpired.Error())
		return nil, prescription.ErrExpired
	}
	if !p.CanDispense() {
		s.recordFailure(ctx, pharmacistID, audit.ActionDispense, p.ID,
			fmt.Sprintf("status is %s", p.Status))
		return nil, fmt.Errorf("%w: status is %s", prescription.ErrInvalidState, p.Status)
	}

	// Exact, case-sensitive match. A mismatch is independently retryable and
	// leaves the prescription untouched.
	if p.PickupCode == nil || *p.PickupCode != suppliedCode {
		s.recordFailure(ctx, pharmacistID, audit.ActionDispense, p.ID, prescription.ErrCodeMismatch.Error())
		return nil, prescription.ErrCodeMismatch
	}

	now := s.now()
	p.Status = prescription.StatusDispensed
	p.DispensedAt = &now
	p.DispensedBy = &pharmacistID
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("recording dispense: %w", err)
	}

	s.auditSvc.Record(ctx, audit.Entry{
		ActorID:     pharmacistID,
		Action:      audit.ActionDispense,
		SubjectType: "prescription",
		SubjectID:   p.ID.String(),
		Outcome:     audit.OutcomeSuccess,
	})

	s.log.Info("prescription dispensed",
		zap.String("prescription_id", p.ID.String()),
		zap.String("pharmacist_id", pharmacistID.String()),
	)

	return p, nil
}

// ListByPatient returns a patient's prescriptions, newest first, lapsing any
// that have quietly passed their expiry.
func (s *PrescriptionService) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*prescription.Prescription, error) {
	list, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, p := range list {
		if !p.Status.IsTerminal() && p.IsExpired(now) {
			p.Status = prescription.StatusExpired
			if err := s.repo.Update(ctx, p); err != nil {
				s.log.Warn("failed to lapse expired prescription",
					zap.String("prescription_id", p.ID.String()), zap.Error(err))
			}
		}
	}

	return list, nil
}

// LapseExpired sweeps active prescriptions past their expiry into the
// expired state and returns how many were transitioned. Expiry is otherwise
// enforced lazily on each state-reading operation; there is no background
// timer in this execution model.
func (s *PrescriptionService) LapseExpired(ctx context.Context) (int, error) {
	lapsed, err := s.repo.ListActiveExpiredBefore(ctx, s.now())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, p := range lapsed {
		p.Status = prescription.StatusExpired
		if err := s.repo.Update(ctx, p); err != nil {
			s.log.Warn("failed to lapse expired prescription",
				zap.String("prescription_id", p.ID.String()), zap.Error(err))
			continue
		}
		count++
	}

	if count > 0 {
		s.log.Info("lapsed expired prescriptions", zap.Int("count", count))
	}
	return count, nil
}

// lapseIfExpired applies the lazy expiry check. If the prescription is past
// its expiry and not yet terminal it is persisted as expired, the attempted
// action is audited as a failure, and ErrExpired is returned.
func (s *PrescriptionService) lapseIfExpired(ctx context.Context, p *prescription.Prescription, action audit.Action, actorID uuid.UUID) error {
	if p.Status.IsTerminal() || !p.IsExpired(s.now()) {
		return nil
	}

	p.Status = prescription.StatusExpired
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("lapsing expired prescription: %w", err)
	}

	s.recordFailure(ctx, actorID, action, p.ID, prescription.ErrExpired.Error())
	return prescription.ErrExpired
}

func (s *PrescriptionService) uniqueActiveCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := prescription.GenerateCode()
		if err != nil {
			return "", err
		}
		inUse, err := s.repo.CodeInUse(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking code uniqueness: %w", err)
		}
		if !inUse {
			return code, nil
		}
		s.log.Warn("pickup code collision, retrying", zap.Int("attempt", attempt+1))
	}
	return "", prescription.ErrCodeSpaceExhausted
}

func (s *PrescriptionService) contactFor(pat *patient.Patient) string {
	switch s.notifier.Channel() {
	case config.ChannelSMS:
		return strings.TrimSpace(pat.Phone)
	default:
		return strings.TrimSpace(pat.Email)
	}
}

func (s *PrescriptionService) pickupMessage(p *prescription.Prescription, pat *patient.Patient, attachQR bool) notify.Message {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour prescription for %s (%s) is ready for pickup.\nPickup code: %s\nValid until: %s\n\nPlease present the code at the pharmacy counter.",
		pat.FullName(), p.Medication, p.Dosage, *p.PickupCode,
		p.ExpiresAt.Format("2006-01-02 15:04 MST"),
	)

	msg := notify.Message{
		Subject: "Your prescription is ready for pickup",
		Body:    body,
	}

	if attachQR && p.QRPath != "" {
		png, err := s.store.Read(p.QRPath)
		if err != nil {
			s.log.Warn("qr artifact unreadable, sending without attachment",
				zap.String("path", p.QRPath), zap.Error(err))
		} else {
			msg.Attachment = png
			msg.AttachmentName = "pickup-code.png"
		}
	}

	return msg
}

func (s *PrescriptionService) recordFailure(ctx context.Context, actorID uuid.UUID, action audit.Action, subjectID uuid.UUID, reason string) {
	s.auditSvc.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      action,
		SubjectType: "prescription",
		SubjectID:   subjectID.String(),
		Outcome:     audit.OutcomeFailure,
		Reason:      reason,
	})
}

func validatePrescriptionCommand(cmd *prescription.CreatePrescriptionCommand) error {
	var errs []string

	if cmd.PatientID == uuid.Nil {
		errs = append(errs, "patient_id is required")
	}
	if cmd.DoctorID == uuid.Nil {
		errs = append(errs, "doctor_id is required")
	}
	if strings.TrimSpace(cmd.Medication) == "" {
		errs = append(errs, "medication is required")
	}
	if strings.TrimSpace(cmd.Dosage) == "" {
		errs = append(errs, "dosage is required")
	}
	if cmd.Validity <= 0 {
		errs = append(errs, "validity must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
