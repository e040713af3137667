package audit

import "context"

// Repository is deliberately narrow: entries can be appended and read back,
// never changed.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	ListByAction(ctx context.Context, action Action) ([]*Entry, error)
	ListBySubject(ctx context.Context, subjectType, subjectID string) ([]*Entry, error)
}
