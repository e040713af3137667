package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthpass/healthpass/internal/config"
	"github.com/healthpass/healthpass/internal/domain/audit"
	"github.com/healthpass/healthpass/internal/domain/prescription"
)

type ReportService struct {
	repo     prescription.Repository
	auditSvc *AuditService
	cfg      config.ReportConfig
	log      *zap.Logger
}

func NewReportService(repo prescription.Repository, auditSvc *AuditService, cfg config.ReportConfig, log *zap.Logger) *ReportService {
	return &ReportService{repo: repo, auditSvc: auditSvc, cfg: cfg, log: log}
}

var dispensedHeader = []string{"prescription_id", "patient_id", "medication", "dispensed_at", "pharmacist_id"}

// ExportDispensed writes every dispensed prescription to the configured CSV
// path, fully overwriting prior content. Zero dispensed prescriptions still
// produce a header-only file. A write failure is reported, not retried.
func (s *ReportService) ExportDispensed(ctx context.Context, actorID uuid.UUID) (string, int, error) {
	rows, err := s.repo.ListByStatus(ctx, prescription.StatusDispensed)
	if err != nil {
		return "", 0, fmt.Errorf("listing dispensed prescriptions: %w", err)
	}

	if err := s.writeCSV(rows); err != nil {
		s.auditSvc.Record(ctx, audit.Entry{
			ActorID:     actorID,
			Action:      audit.ActionReportExport,
			SubjectType: "report",
			SubjectID:   s.cfg.DispensedPath,
			Outcome:     audit.OutcomeFailure,
			Reason:      err.Error(),
		})
		return "", 0, err
	}

	s.auditSvc.Record(ctx, audit.Entry{
		ActorID:     actorID,
		Action:      audit.ActionReportExport,
		SubjectType: "report",
		SubjectID:   s.cfg.DispensedPath,
		Outcome:     audit.OutcomeSuccess,
		Detail:      fmt.Sprintf("rows=%d", len(rows)),
	})

	s.log.Info("dispensed report exported",
		zap.String("path", s.cfg.DispensedPath),
		zap.Int("rows", len(rows)),
	)

	return s.cfg.DispensedPath, len(rows), nil
}

func (s *ReportService) writeCSV(rows []*prescription.Prescription) error {
	if dir := filepath.Dir(s.cfg.DispensedPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}

	f, err := os.Create(s.cfg.DispensedPath)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(dispensedHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, p := range rows {
		dispensedAt := ""
		if p.DispensedAt != nil {
			dispensedAt = p.DispensedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		pharmacist := ""
		if p.DispensedBy != nil {
			pharmacist = p.DispensedBy.String()
		}
		record := []string{p.ID.String(), p.PatientID.String(), p.Medication, dispensedAt, pharmacist}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing row for %s: %w", p.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing report: %w", err)
	}
	return nil
}
