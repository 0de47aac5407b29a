package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/topfive-api/internal/dto"
	"github.com/noah-isme/topfive-api/internal/models"
	"github.com/noah-isme/topfive-api/internal/policy"
	"github.com/noah-isme/topfive-api/internal/repository"
	appErrors "github.com/noah-isme/topfive-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	SetRole(ctx context.Context, email string, role models.UserRole) (*models.User, error)
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns paginated users. Non-admin callers never see admin accounts.
func (s *UserService) List(ctx context.Context, actor models.Actor, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if !actor.Authenticated() {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if !actor.IsPrivileged() {
		admin := models.RoleAdmin
		filter.ExcludeRole = &admin
		if filter.Role != nil && *filter.Role == models.RoleAdmin {
			return []models.User{}, paginate(filter.Page, filter.PageSize, 20, 0), nil
		}
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storageError(err, "failed to list users")
	}
	return users, paginate(filter.Page, filter.PageSize, 20, total), nil
}

// Get returns a user by ID if the actor may see it.
func (s *UserService) Get(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, storageError(err, "failed to load user")
	}
	if !policy.CanViewUser(actor, user) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return user, nil
}

// Create adds a new account.
func (s *UserService) Create(ctx context.Context, actor models.Actor, req dto.CreateUserRequest) (*models.User, error) {
	if !policy.CanManageUsers(actor) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Active:       true,
		PasswordHash: string(passwordHash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, storageError(err, "failed to create user")
	}

	s.record(ctx, newAuditEntry(s.logger, actor, models.AuditActionUserCreate, models.AuditTargetUser, user.ID, "user created",
		map[string]interface{}{"email": user.Email, "role": user.Role}))
	return user, nil
}

// Update modifies the user attributes.
func (s *UserService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateUserRequest) (*models.User, error) {
	if !policy.CanManageUsers(actor) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, storageError(err, "failed to load user")
	}

	before := map[string]interface{}{"email": user.Email, "role": user.Role, "active": user.Active}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		case repository.IsNotFound(err):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, storageError(err, "failed to update user")
	}

	s.record(ctx, newAuditEntry(s.logger, actor, models.AuditActionUserUpdate, models.AuditTargetUser, user.ID, "user updated",
		map[string]interface{}{
			"before": before,
			"after":  map[string]interface{}{"email": user.Email, "role": user.Role, "active": user.Active},
		}))
	return user, nil
}

// Delete deactivates a user. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !policy.CanManageUsers(actor) {
		return appErrors.ErrForbidden
	}
	if !policy.CanDeleteUser(actor, id) {
		return appErrors.Clone(appErrors.ErrForbidden, "you cannot delete your own account")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return storageError(err, "failed to load user")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return storageError(err, "failed to delete user")
	}

	s.record(ctx, newAuditEntry(s.logger, actor, models.AuditActionUserDelete, models.AuditTargetUser, user.ID, "user deleted",
		map[string]interface{}{"email": user.Email}))
	return nil
}

// Promote grants the admin role to the account with email. Used by the CLI.
func (s *UserService) Promote(ctx context.Context, actor models.Actor, email string) (*models.User, error) {
	if !actor.System && !policy.CanManageUsers(actor) {
		return nil, appErrors.ErrForbidden
	}
	user, err := s.repo.SetRole(ctx, strings.TrimSpace(email), models.RoleAdmin)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, storageError(err, "failed to promote user")
	}
	s.record(ctx, newAuditEntry(s.logger, actor, models.AuditActionUserUpdate, models.AuditTargetUser, user.ID, "promoted to admin",
		map[string]interface{}{"role": user.Role}))
	return user, nil
}

func (s *UserService) record(ctx context.Context, entry *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}
