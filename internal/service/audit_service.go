package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/cargodesk/cargodesk/internal/authz"
	"github.com/cargodesk/cargodesk/internal/domain"
	"github.com/cargodesk/cargodesk/internal/repository"
	apperrors "github.com/cargodesk/cargodesk/pkg/util"
)

// AuditService records mutations and serves the audit log to managers.
type AuditService struct {
	entries repository.AuditRepository
	logger  *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(entries repository.AuditRepository, logger *zap.Logger) *AuditService {
	return &AuditService{entries: entries, logger: logger}
}

// Record appends an audit entry. Failures are logged and swallowed: the audit
// trail must never roll back the mutation it describes.
func (s *AuditService) Record(ctx context.Context, entry *domain.AuditEntry) {
	if s == nil || s.entries == nil {
		return
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		s.logger.Error("audit write failed",
			zap.String("table", entry.TableName),
			zap.String("record_id", entry.RecordID),
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
	}
}

// List returns audit entries for manager-or-above callers.
func (s *AuditService) List(ctx context.Context, actor *authz.Profile, filter repository.AuditFilter) ([]domain.AuditEntry, error) {
	if !authz.CanViewAuditLog(actor) {
		return nil, apperrors.NewForbidden("audit log access requires a manager role")
	}
	entries, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}
