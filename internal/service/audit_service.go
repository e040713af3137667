package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/healthpass/healthpass/internal/domain/audit"
)

type AuditService struct {
	repo audit.Repository
	log  *zap.Logger
}

func NewAuditService(repo audit.Repository, log *zap.Logger) *AuditService {
	return &AuditService{repo: repo, log: log}
}

// Record persists an audit entry synchronously. Each CLI invocation is one
// short-lived process, so entries must land before the operation returns.
// A failed write is logged but never fails the operation it describes.
func (s *AuditService) Record(ctx context.Context, entry audit.Entry) {
	if err := s.repo.Create(ctx, &entry); err != nil {
		s.log.Error("failed to persist audit entry",
			zap.String("action", string(entry.Action)),
			zap.String("subject", entry.SubjectType+"/"+entry.SubjectID),
			zap.Error(err),
		)
	}
}
