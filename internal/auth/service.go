package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/domain"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/validation"
)

var (
	// ErrInvalidCredentials hides whether the email, password or role was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAuthRequired       = errors.New("authentication required")
)

// Recorder receives account changes for the audit trail.
type Recorder interface {
	LogAccount(actorID uint, action string, subjectID uint, email string)
}

// Service handles registration, credential checks and account removal.
type Service struct {
	users    *users.Repository
	config   config.Auth
	recorder Recorder
}

// NewService creates a new authentication service. recorder may be nil.
func NewService(repo *users.Repository, cfg config.Auth, recorder Recorder) *Service {
	return &Service{
		users:    repo,
		config:   cfg,
		recorder: recorder,
	}
}

// Register creates a regular reader account.
func (s *Service) Register(ctx context.Context, email, password string) (*entities.User, error) {
	user, err := s.CreateUser(ctx, email, password, entities.UserRoleUser)
	if err != nil {
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.LogAccount(user.ID, "user_register", user.ID, user.Email)
	}
	return user, nil
}

// CreateUser creates an account with the given role. An email used by any
// account, including a deleted one, is ErrConflict.
func (s *Service) CreateUser(ctx context.Context, email, password string, role entities.UserRole) (*entities.User, error) {
	email = normalizeEmail(email)

	var errs []domain.FieldError
	if !validation.Email(email) {
		errs = append(errs, domain.FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if !role.IsValid() {
		errs = append(errs, domain.FieldError{Field: "role", Message: "must be admin or user"})
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		fe, ok := policyViolation("password", err)
		if !ok {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		errs = append(errs, fe)
	}
	if len(errs) > 0 {
		return nil, domain.NewValidationErrors(errs)
	}

	user := &entities.User{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate validates credentials for the given role and returns the user.
// Deleted accounts cannot log in.
func (s *Service) Authenticate(ctx context.Context, email, password string, role entities.UserRole) (*entities.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email), domain.ExcludeDeleted)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Role != role {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByID retrieves a live user.
func (s *Service) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	return s.users.GetByID(ctx, id, domain.ExcludeDeleted)
}

// DeleteUser soft-deletes an account. Administrators cannot delete themselves.
// Borrows made by the account stay in the ledger and can still be returned
// by an administrator.
func (s *Service) DeleteUser(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return fmt.Errorf("user %d: cannot delete own account: %w", id, domain.ErrConflict)
	}
	user, err := s.users.GetByID(ctx, id, domain.ExcludeDeleted)
	if err != nil {
		return err
	}
	if err := s.users.SoftDelete(ctx, id, time.Now()); err != nil {
		return err
	}
	if s.recorder != nil {
		s.recorder.LogAccount(actorID, "user_delete", id, user.Email)
	}
	return nil
}

// ChangePassword updates a user's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(oldPassword, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	newHash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		if fe, ok := policyViolation("new_password", err); ok {
			return domain.NewValidationErrors([]domain.FieldError{fe})
		}
		return err
	}
	return s.users.UpdatePasswordHash(ctx, userID, newHash)
}

// HasAdmin reports whether at least one live administrator exists.
func (s *Service) HasAdmin(ctx context.Context) (bool, error) {
	count, err := s.users.CountByRole(ctx, entities.UserRoleAdmin)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
