package patient

import "errors"

var (
	ErrNotFound      = errors.New("patient not found")
	ErrAlreadyExists = errors.New("patient with this health card already exists")

	// ErrMissingContact is recoverable: the caller should collect the missing
	// phone or email, persist it, and retry the notification.
	ErrMissingContact = errors.New("patient has no contact info for the configured channel")
)
