package service

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthpass/healthpass/internal/config"
	"github.com/healthpass/healthpass/internal/domain/audit"
	"github.com/healthpass/healthpass/internal/domain/prescription"
)

func newReportFixture(t *testing.T) (*ReportService, *memRxRepo, *captureAuditRepo, string) {
	t.Helper()
	repo := newMemRxRepo()
	auditRepo := &captureAuditRepo{}
	log := zap.NewNop()
	path := filepath.Join(t.TempDir(), "reports", "dispensed.csv")
	svc := NewReportService(repo, NewAuditService(auditRepo, log), config.ReportConfig{DispensedPath: path}, log)
	return svc, repo, auditRepo, path
}

func seedDispensed(t *testing.T, repo *memRxRepo, medication string) *prescription.Prescription {
	t.Helper()
	at := time.Date(2026, 3, 11, 14, 30, 0, 0, time.UTC)
	by := uuid.New()
	code := "WXYZ234567"
	p := &prescription.Prescription{
		PatientID:   uuid.New(),
		DoctorID:    uuid.New(),
		Medication:  medication,
		Dosage:      "500mg",
		ExpiresAt:   at.Add(24 * time.Hour),
		Status:      prescription.StatusDispensed,
		PickupCode:  &code,
		DispensedAt: &at,
		DispensedBy: &by,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportDispensed(t *testing.T) {
	svc, repo, auditRepo, path := newReportFixture(t)
	ctx := context.Background()

	seeded := seedDispensed(t, repo, "Amoxicillin")

	// Non-dispensed prescriptions stay out of the report.
	active := &prescription.Prescription{
		PatientID:  uuid.New(),
		DoctorID:   uuid.New(),
		Medication: "Lisinopril",
		Dosage:     "10mg",
		ExpiresAt:  time.Now().Add(24 * time.Hour),
		Status:     prescription.StatusNotified,
	}
	require.NoError(t, repo.Create(ctx, active))

	gotPath, rows, err := svc.ExportDispensed(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, path, gotPath)
	assert.Equal(t, 1, rows)

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, dispensedHeader, records[0])
	assert.Equal(t, seeded.ID.String(), records[1][0])
	assert.Equal(t, "Amoxicillin", records[1][2])
	assert.Equal(t, "2026-03-11T14:30:00Z", records[1][3])
	assert.Equal(t, seeded.DispensedBy.String(), records[1][4])

	require.Len(t, auditRepo.byOutcome(audit.ActionReportExport, audit.OutcomeSuccess), 1)
}

func TestExportDispensed_EmptyStillWritesHeader(t *testing.T) {
	svc, _, _, path := newReportFixture(t)

	_, rows, err := svc.ExportDispensed(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, rows)

	records := readCSV(t, path)
	require.Len(t, records, 1)
	assert.Equal(t, dispensedHeader, records[0])
}

func TestExportDispensed_OverwritesPriorContent(t *testing.T) {
	svc, repo, _, path := newReportFixture(t)
	ctx := context.Background()
	actor := uuid.New()

	seedDispensed(t, repo, "Amoxicillin")
	_, _, err := svc.ExportDispensed(ctx, actor)
	require.NoError(t, err)

	seedDispensed(t, repo, "Metformin")
	_, rows, err := svc.ExportDispensed(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	// Full rewrite each run: header plus exactly the current rows.
	records := readCSV(t, path)
	assert.Len(t, records, 3)
}

func TestExportDispensed_WriteFailureAudited(t *testing.T) {
	repo := newMemRxRepo()
	auditRepo := &captureAuditRepo{}
	log := zap.NewNop()

	// Point the report at a path whose parent is a file, so os.Create fails.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	path := filepath.Join(blocker, "dispensed.csv")

	svc := NewReportService(repo, NewAuditService(auditRepo, log), config.ReportConfig{DispensedPath: path}, log)

	_, _, err := svc.ExportDispensed(context.Background(), uuid.New())
	require.Error(t, err)
	require.Len(t, auditRepo.byOutcome(audit.ActionReportExport, audit.OutcomeFailure), 1)
}
