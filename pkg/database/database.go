package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/healthpass/healthpass/internal/config"
	"github.com/healthpass/healthpass/internal/domain/audit"
	"github.com/healthpass/healthpass/internal/domain/patient"
	"github.com/healthpass/healthpass/internal/domain/prescription"
)

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		PrepareStmt:    true,
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DSN(),
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Migrate is safe to run on every startup.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	schemas := []string{"clinical", "audit"}
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&patient.Patient{},
		&prescription.Prescription{},
		&audit.Entry{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

var schemaIndexes = []struct {
	name  string
	query string
}{
	// Active-code uniqueness lookups and the lazy expiry sweep both hit
	// (status, expires_at).
	{
		name:  "idx_prescriptions_active_expiry",
		query: `CREATE INDEX IF NOT EXISTS idx_prescriptions_active_expiry ON clinical.prescriptions (status, expires_at) WHERE status IN ('created', 'code_issued', 'notified')`,
	},
	// Unique only while the code is live: dispensed and expired rows keep
	// their code, and a later draw may legitimately reuse it.
	{
		name:  "idx_prescriptions_active_code",
		query: `CREATE UNIQUE INDEX IF NOT EXISTS idx_prescriptions_active_code ON clinical.prescriptions (pickup_code) WHERE status IN ('code_issued', 'notified')`,
	},
	{
		name:  "idx_audit_subject",
		query: `CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit.logs (subject_type, subject_id, occurred_at)`,
	},
}

func createIndexes(db *gorm.DB) error {
	for _, idx := range schemaIndexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("creating index %s: %w", idx.name, err)
		}
	}

	return nil
}
