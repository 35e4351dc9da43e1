package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/cargodesk/cargodesk/internal/authz"
	"github.com/cargodesk/cargodesk/internal/domain"
	"github.com/cargodesk/cargodesk/internal/repository"
	apperrors "github.com/cargodesk/cargodesk/pkg/util"
)

// DepartmentService manages department reference data. Listing is open to any
// authenticated caller; edits require super-admin.
type DepartmentService struct {
	departments repository.DepartmentRepository
	audit       *AuditService
}

// DepartmentInput describes department payloads.
type DepartmentInput struct {
	Code            string
	Name            string
	DefaultSLAHours int
	IsActive        *bool
}

// NewDepartmentService constructs the service.
func NewDepartmentService(departments repository.DepartmentRepository, audit *AuditService) *DepartmentService {
	return &DepartmentService{departments: departments, audit: audit}
}

// List returns departments visible to the caller.
func (s *DepartmentService) List(ctx context.Context, actor Actor, includeInactive bool) ([]domain.Department, error) {
	if actor.Profile == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	if includeInactive && !authz.CanManageDepartments(actor.Profile) {
		includeInactive = false
	}
	depts, err := s.departments.List(ctx, includeInactive)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return depts, nil
}

// Create adds a department.
func (s *DepartmentService) Create(ctx context.Context, actor Actor, input DepartmentInput) (*domain.Department, error) {
	if !authz.CanManageDepartments(actor.Profile) {
		return nil, apperrors.NewForbidden("department management requires super-admin")
	}
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	if input.Code == "" || input.Name == "" {
		return nil, apperrors.NewValidationError("code and name required", nil)
	}
	if input.DefaultSLAHours <= 0 {
		return nil, apperrors.NewValidationError("default_sla_hours must be positive", nil)
	}

	dept := &domain.Department{
		Code:            input.Code,
		Name:            strings.TrimSpace(input.Name),
		DefaultSLAHours: input.DefaultSLAHours,
		IsActive:        true,
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordDeptAudit(ctx, actor, dept.ID, domain.AuditActionCreate, nil, map[string]any{
		"code": dept.Code, "default_sla_hours": dept.DefaultSLAHours,
	})
	return dept, nil
}

// Update edits department metadata including the SLA window.
func (s *DepartmentService) Update(ctx context.Context, actor Actor, id string, input DepartmentInput) (*domain.Department, error) {
	if !authz.CanManageDepartments(actor.Profile) {
		return nil, apperrors.NewForbidden("department management requires super-admin")
	}
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": id})
		}
		return nil, apperrors.MapError(err)
	}

	old := map[string]any{
		"code": dept.Code, "name": dept.Name,
		"default_sla_hours": dept.DefaultSLAHours, "is_active": dept.IsActive,
	}
	if code := strings.ToUpper(strings.TrimSpace(input.Code)); code != "" {
		dept.Code = code
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		dept.Name = name
	}
	if input.DefaultSLAHours > 0 {
		dept.DefaultSLAHours = input.DefaultSLAHours
	}
	if input.IsActive != nil {
		dept.IsActive = *input.IsActive
	}

	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordDeptAudit(ctx, actor, dept.ID, domain.AuditActionUpdate, old, map[string]any{
		"code": dept.Code, "name": dept.Name,
		"default_sla_hours": dept.DefaultSLAHours, "is_active": dept.IsActive,
	})
	return dept, nil
}

func (s *DepartmentService) recordDeptAudit(ctx context.Context, actor Actor, deptID string, action domain.AuditAction, oldValues, newValues map[string]any) {
	var actorID *string
	if actor.Profile != nil {
		id := actor.Profile.UserID
		actorID = &id
	}
	s.audit.Record(ctx, &domain.AuditEntry{
		TableName:  "departments",
		RecordID:   deptID,
		Action:     action,
		OldValues:  oldValues,
		NewValues:  newValues,
		ActorID:    actorID,
		OriginAddr: actor.Origin,
	})
}
