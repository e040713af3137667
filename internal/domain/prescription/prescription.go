package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Status follows a monotonic lifecycle:
//
//	created → code_issued → notified → dispensed
//
// with expired reachable from any non-terminal state once the expiry
// timestamp has passed. dispensed and expired are terminal.
type Status string

const (
	StatusCreated    Status = "created"
	StatusCodeIssued Status = "code_issued"
	StatusNotified   Status = "notified"
	StatusDispensed  Status = "dispensed"
	StatusExpired    Status = "expired"
)

func (s Status) IsTerminal() bool {
	return s == StatusDispensed || s == StatusExpired
}

// ActiveStatuses are the states a live, not-yet-resolved prescription can be
// in. Pickup codes must be unique across prescriptions in code_issued or
// notified state.
var ActiveStatuses = []Status{StatusCreated, StatusCodeIssued, StatusNotified}

type Prescription struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index"`

	Medication   string `gorm:"column:medication;type:varchar(255);not null"`
	Dosage       string `gorm:"column:dosage;type:varchar(255);not null"`
	Instructions string `gorm:"column:instructions;type:text"`

	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`

	Status Status `gorm:"column:status;type:varchar(30);not null;default:'created';index"`

	// Uniqueness holds among active prescriptions only; retired rows keep
	// their code for the audit trail. The partial unique index lives in
	// pkg/database, not here: a gorm uniqueIndex would be global and forever.
	PickupCode *string `gorm:"column:pickup_code;type:varchar(16);index"`
	QRPath     string  `gorm:"column:qr_path;type:text"`

	DispensedAt *time.Time `gorm:"column:dispensed_at"`
	DispensedBy *uuid.UUID `gorm:"column:dispensed_by;type:uuid"`
}

func (Prescription) TableName() string {
	return "clinical.prescriptions"
}

func (p *Prescription) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// CanDispense reports whether the prescription is in a dispensable state.
// Notification is advisory: a pharmacist may dispense before delivery is
// confirmed, so both code_issued and notified qualify.
func (p *Prescription) CanDispense() bool {
	return p.Status == StatusCodeIssued || p.Status == StatusNotified
}

type CreatePrescriptionCommand struct {
	PatientID    uuid.UUID
	DoctorID     uuid.UUID
	Medication   string
	Dosage       string
	Instructions string
	Validity     time.Duration
}
