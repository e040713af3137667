package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/healthpass/healthpass/internal/config"
	"github.com/healthpass/healthpass/internal/notify"
	"github.com/healthpass/healthpass/internal/qr"
	"github.com/healthpass/healthpass/internal/repository"
	"github.com/healthpass/healthpass/internal/service"
	"github.com/healthpass/healthpass/pkg/database"
	"github.com/healthpass/healthpass/pkg/logger"
)

// app wires configuration, storage, and services for one CLI invocation.
// Configuration problems surface here, before any command logic runs.
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB

	patientSvc *service.PatientService
	rxSvc      *service.PrescriptionService
	reportSvc  *service.ReportService
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	notifier, err := notify.New(cfg.Notify, log)
	if err != nil {
		return nil, err
	}

	auditRepo := repository.NewAuditRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	rxRepo := repository.NewPrescriptionRepository(db)

	auditSvc := service.NewAuditService(auditRepo, log)
	provider := qr.NewHTTPProvider(cfg.QR, log)
	store := qr.NewStore(cfg.QR.OutputDir)

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		patientSvc: service.NewPatientService(patientRepo, auditSvc, log),
		rxSvc: service.NewPrescriptionService(
			rxRepo, patientRepo, auditSvc, provider, store, notifier, log,
		),
		reportSvc: service.NewReportService(rxRepo, auditSvc, cfg.Report, log),
	}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}
