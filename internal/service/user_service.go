package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/cargodesk/cargodesk/internal/auth"
	"github.com/cargodesk/cargodesk/internal/authz"
	"github.com/cargodesk/cargodesk/internal/config"
	"github.com/cargodesk/cargodesk/internal/domain"
	"github.com/cargodesk/cargodesk/internal/repository"
	apperrors "github.com/cargodesk/cargodesk/pkg/util"
)

// UserService manages accounts. All operations require the super-admin tier.
type UserService struct {
	users       repository.UserRepository
	departments repository.DepartmentRepository
	audit       *AuditService
	bcryptCost  int
}

// UserDependencies bundles collaborators.
type UserDependencies struct {
	UserRepo       repository.UserRepository
	DepartmentRepo repository.DepartmentRepository
	Audit          *AuditService
}

// UserCreateInput describes account creation payload.
type UserCreateInput struct {
	Name         string
	Email        string
	Password     string
	RoleName     string
	DepartmentID *string
}

// UserUpdateInput describes mutable account fields. Nil fields stay as-is.
type UserUpdateInput struct {
	Name         *string
	RoleName     *string
	DepartmentID *string
}

// NewUserService constructs the service.
func NewUserService(cfg config.Config, deps UserDependencies) *UserService {
	return &UserService{
		users:       deps.UserRepo,
		departments: deps.DepartmentRepo,
		audit:       deps.Audit,
		bcryptCost:  cfg.Auth.BcryptCost,
	}
}

// CreateUser provisions a new account.
func (s *UserService) CreateUser(ctx context.Context, actor Actor, input UserCreateInput) (*domain.User, error) {
	if !authz.CanManageUsers(actor.Profile) {
		return nil, apperrors.NewForbidden("user management requires super-admin")
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" || input.Name == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("name, email and password required", nil)
	}
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": input.Email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	if input.DepartmentID != nil {
		if _, err := s.departments.GetByID(ctx, *input.DepartmentID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("department", map[string]any{"department_id": *input.DepartmentID})
			}
			return nil, apperrors.MapError(err)
		}
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	roleName := input.RoleName
	if roleName == "" {
		roleName = domain.RoleUser
	}

	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        input.Email,
		PasswordHash: hash,
		RoleName:     roleName,
		DepartmentID: input.DepartmentID,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordUserAudit(ctx, actor, user.ID, domain.AuditActionCreate, nil, map[string]any{
		"email":     user.Email,
		"role_name": user.RoleName,
	})
	return user, nil
}

// UpdateUser changes profile, role or department of an account.
func (s *UserService) UpdateUser(ctx context.Context, actor Actor, userID string, input UserUpdateInput) (*domain.User, error) {
	if !authz.CanManageUsers(actor.Profile) {
		return nil, apperrors.NewForbidden("user management requires super-admin")
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	old := map[string]any{"name": user.Name, "role_name": user.RoleName, "department_id": user.DepartmentID}
	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.RoleName != nil {
		user.RoleName = *input.RoleName
	}
	if input.DepartmentID != nil {
		if _, err := s.departments.GetByID(ctx, *input.DepartmentID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("department", map[string]any{"department_id": *input.DepartmentID})
			}
			return nil, apperrors.MapError(err)
		}
		user.DepartmentID = input.DepartmentID
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordUserAudit(ctx, actor, user.ID, domain.AuditActionUpdate, old, map[string]any{
		"name": user.Name, "role_name": user.RoleName, "department_id": user.DepartmentID,
	})
	return user, nil
}

// DeactivateUser soft-deactivates an account. Accounts are never deleted.
func (s *UserService) DeactivateUser(ctx context.Context, actor Actor, userID string) (*domain.User, error) {
	return s.setActive(ctx, actor, userID, false)
}

// ReactivateUser re-enables a deactivated account.
func (s *UserService) ReactivateUser(ctx context.Context, actor Actor, userID string) (*domain.User, error) {
	return s.setActive(ctx, actor, userID, true)
}

// ListUsers returns accounts matching the filter.
func (s *UserService) ListUsers(ctx context.Context, actor Actor, filter repository.UserFilter) ([]domain.User, error) {
	if !authz.CanManageUsers(actor.Profile) {
		return nil, apperrors.NewForbidden("user management requires super-admin")
	}
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

func (s *UserService) setActive(ctx context.Context, actor Actor, userID string, active bool) (*domain.User, error) {
	if !authz.CanManageUsers(actor.Profile) {
		return nil, apperrors.NewForbidden("user management requires super-admin")
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Active == active {
		return user, nil
	}
	old := map[string]any{"active": user.Active}
	user.Active = active
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordUserAudit(ctx, actor, user.ID, domain.AuditActionUpdate, old, map[string]any{"active": active})
	return user, nil
}

func (s *UserService) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *UserService) recordUserAudit(ctx context.Context, actor Actor, userID string, action domain.AuditAction, oldValues, newValues map[string]any) {
	var actorID *string
	if actor.Profile != nil {
		id := actor.Profile.UserID
		actorID = &id
	}
	s.audit.Record(ctx, &domain.AuditEntry{
		TableName:  "users",
		RecordID:   userID,
		Action:     action,
		OldValues:  oldValues,
		NewValues:  newValues,
		ActorID:    actorID,
		OriginAddr: actor.Origin,
	})
}
