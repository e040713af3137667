package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthpass/healthpass/internal/domain/audit"
	"github.com/healthpass/healthpass/internal/domain/patient"
)

func newPatientService() (*PatientService, *memPatientRepo, *captureAuditRepo) {
	repo := newMemPatientRepo()
	auditRepo := &captureAuditRepo{}
	log := zap.NewNop()
	return NewPatientService(repo, NewAuditService(auditRepo, log), log), repo, auditRepo
}

func registerCmd() *patient.RegisterPatientCommand {
	return &patient.RegisterPatientCommand{
		HealthCardNo: "HC-1234-5678",
		FirstName:    "Ada",
		LastName:     "Nguyen",
		DateOfBirth:  time.Date(1988, 4, 2, 0, 0, 0, 0, time.UTC),
		Phone:        "+15550001111",
		Email:        "Ada@Example.com",
	}
}

func TestRegisterPatient(t *testing.T) {
	svc, _, auditRepo := newPatientService()
	actor := uuid.New()

	p, err := svc.RegisterPatient(context.Background(), registerCmd(), actor)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, patient.EncodeHealthCard("HC-1234-5678"), p.HealthCardRef)
	assert.Equal(t, "ada@example.com", p.Email)
	require.Len(t, auditRepo.byOutcome(audit.ActionRegisterPatient, audit.OutcomeSuccess), 1)
}

func TestRegisterPatient_RawCardNeverStored(t *testing.T) {
	svc, _, _ := newPatientService()

	p, err := svc.RegisterPatient(context.Background(), registerCmd(), uuid.New())
	require.NoError(t, err)

	assert.NotContains(t, p.HealthCardRef, "HC-1234-5678")
	assert.Len(t, p.HealthCardRef, 64) // hex digest
}

func TestRegisterPatient_DuplicateCard(t *testing.T) {
	svc, _, auditRepo := newPatientService()
	ctx := context.Background()
	actor := uuid.New()

	_, err := svc.RegisterPatient(ctx, registerCmd(), actor)
	require.NoError(t, err)

	// Same card, different demographics: still a duplicate.
	dup := registerCmd()
	dup.FirstName = "Someone"
	dup.LastName = "Else"
	_, err = svc.RegisterPatient(ctx, dup, actor)

	assert.ErrorIs(t, err, patient.ErrAlreadyExists)
	require.Len(t, auditRepo.byOutcome(audit.ActionRegisterPatient, audit.OutcomeFailure), 1)
}

func TestRegisterPatient_Validation(t *testing.T) {
	svc, _, auditRepo := newPatientService()

	cmd := registerCmd()
	cmd.HealthCardNo = "  "
	cmd.FirstName = ""
	cmd.DateOfBirth = time.Now().Add(48 * time.Hour)

	_, err := svc.RegisterPatient(context.Background(), cmd, uuid.New())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "health_card_no is required")
	assert.Contains(t, verr.Fields, "first_name is required")
	assert.Contains(t, verr.Fields, "date_of_birth cannot be in the future")
	assert.Empty(t, auditRepo.entries)
}

func TestRegisterPatient_NoContactIsAllowed(t *testing.T) {
	// Contact details are optional at registration; notification fails later
	// with a recoverable error instead.
	svc, _, _ := newPatientService()

	cmd := registerCmd()
	cmd.Phone = ""
	cmd.Email = ""

	_, err := svc.RegisterPatient(context.Background(), cmd, uuid.New())
	assert.NoError(t, err)
}

func TestGetByHealthCard(t *testing.T) {
	svc, _, _ := newPatientService()
	ctx := context.Background()

	created, err := svc.RegisterPatient(ctx, registerCmd(), uuid.New())
	require.NoError(t, err)

	got, err := svc.GetByHealthCard(ctx, "HC-1234-5678")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.GetByHealthCard(ctx, "HC-0000-0000")
	assert.ErrorIs(t, err, patient.ErrNotFound)
}

func TestUpdateContact(t *testing.T) {
	svc, repo, auditRepo := newPatientService()
	ctx := context.Background()
	actor := uuid.New()

	created, err := svc.RegisterPatient(ctx, registerCmd(), actor)
	require.NoError(t, err)

	email := "new@example.com"
	updated, err := svc.UpdateContact(ctx, created.ID, &patient.UpdateContactCommand{Email: &email}, actor)
	require.NoError(t, err)

	assert.Equal(t, email, updated.Email)
	assert.Equal(t, "+15550001111", updated.Phone) // untouched field survives

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, email, stored.Email)
	require.Len(t, auditRepo.byOutcome(audit.ActionUpdateContact, audit.OutcomeSuccess), 1)
}

func TestUpdateContact_NotFound(t *testing.T) {
	svc, _, _ := newPatientService()

	phone := "+15559998888"
	_, err := svc.UpdateContact(context.Background(), uuid.New(), &patient.UpdateContactCommand{Phone: &phone}, uuid.New())
	assert.ErrorIs(t, err, patient.ErrNotFound)
}
