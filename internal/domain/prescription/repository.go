package prescription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error

	// GetByID returns ErrNotFound if the prescription does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)

	// Update persists the full current state of the prescription.
	Update(ctx context.Context, p *Prescription) error

	// ListByPatient returns a patient's prescriptions, newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error)

	// ListByStatus returns all prescriptions in the given status.
	ListByStatus(ctx context.Context, status Status) ([]*Prescription, error)

	// CodeInUse reports whether code is assigned to any prescription in
	// code_issued or notified state.
	CodeInUse(ctx context.Context, code string) (bool, error)

	// ListActiveExpiredBefore returns non-terminal prescriptions whose expiry
	// precedes cutoff, for the lazy expiry sweep.
	ListActiveExpiredBefore(ctx context.Context, cutoff time.Time) ([]*Prescription, error)
}
