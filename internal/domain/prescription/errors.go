package prescription

import "errors"

var (
	ErrNotFound     = errors.New("prescription not found")
	ErrInvalidState = errors.New("operation not valid for current prescription state")
	ErrExpired      = errors.New("prescription has expired")
	ErrCodeMismatch = errors.New("supplied pickup code does not match")
	ErrNoPickupCode = errors.New("prescription has no pickup code")

	// ErrCodeSpaceExhausted means repeated draws kept colliding with active
	// codes. That only happens when the code space is exhausted or the
	// active-code lookup is broken, so it is treated as fatal.
	ErrCodeSpaceExhausted = errors.New("could not generate a unique pickup code")
)
