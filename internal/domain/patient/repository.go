package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new patient. Returns ErrAlreadyExists on a duplicate
	// health card reference.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a patient by primary key. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// GetByHealthCardRef retrieves a patient by encoded health card reference.
	GetByHealthCardRef(ctx context.Context, ref string) (*Patient, error)

	// UpdateContact amends phone and/or email for an existing patient.
	// Nil fields are left untouched.
	UpdateContact(ctx context.Context, id uuid.UUID, cmd *UpdateContactCommand) (*Patient, error)

	// ExistsByHealthCardRef checks uniqueness without fetching the full record.
	ExistsByHealthCardRef(ctx context.Context, ref string) (bool, error)
}
