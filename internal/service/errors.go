package service

import "strings"

// ValidationError covers bad input shape rejected before any state is
// touched. It is the one failure class that does not produce an audit entry.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}
