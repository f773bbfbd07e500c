package services

import (
	"context"
	"fmt"

	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/repository"
)

// AuditService exposes the audit trail for review
type AuditService struct {
	auditLogs repository.AuditLogRepository
}

func NewAuditService(d Deps) *AuditService {
	return &AuditService{auditLogs: d.AuditLogs}
}

func (s *AuditService) ListAuditLogs(ctx context.Context, filter repository.AuditLogFilter) ([]models.AuditLog, int64, error) {
	logs, total, err := s.auditLogs.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}
