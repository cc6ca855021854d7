// Package users is the account store.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByEmail(ctx, "reader@example.com", domain.IncludeDeleted)
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/database/dbutil"
	"github.com/mrlokans/librarian/internal/domain"
	"github.com/mrlokans/librarian/internal/entities"
)

// ListQuery selects a page of accounts.
type ListQuery struct {
	Offset      int
	Limit       int
	EmailFilter string
	Visibility  domain.Visibility
}

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a user. An email already in use, by a live or deleted
// account, is a conflict.
func (r *Repository) Create(ctx context.Context, user *entities.User) error {
	_, err := r.GetByEmail(ctx, user.Email, domain.IncludeDeleted)
	if err == nil {
		return fmt.Errorf("user %s: %w", user.Email, domain.ErrConflict)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return dbutil.MapError(err, "user", user.Email)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uint, vis domain.Visibility) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).
		Scopes(dbutil.Visible("users", vis)).
		First(&user, id).Error
	if err != nil {
		return nil, dbutil.MapError(err, "user", id)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string, vis domain.Visibility) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).
		Scopes(dbutil.Visible("users", vis)).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, dbutil.MapError(err, "user", email)
	}
	return &user, nil
}

// SoftDelete marks a live user as deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&entities.User{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]any{"deleted_at": at, "updated_at": at})
	if result.Error != nil {
		return dbutil.MapError(result.Error, "user", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdatePasswordHash replaces a live user's password hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	result := r.db.WithContext(ctx).Model(&entities.User{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("password_hash", hash)
	if result.Error != nil {
		return dbutil.MapError(result.Error, "user", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List returns one page of users ordered by id and the total matching the filter.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]entities.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.User{}).
		Scopes(dbutil.Visible("users", q.Visibility))
	if q.EmailFilter != "" {
		query = query.Where(dbutil.ContainsClause("email"), dbutil.ContainsPattern(q.EmailFilter))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, dbutil.MapError(err, "users", "count")
	}

	var items []entities.User
	err := query.Order("id ASC").Limit(q.Limit).Offset(q.Offset).Find(&items).Error
	if err != nil {
		return nil, 0, dbutil.MapError(err, "users", "list")
	}
	return items, total, nil
}

// Count returns the number of users visible under vis.
func (r *Repository) Count(ctx context.Context, vis domain.Visibility) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.User{}).
		Scopes(dbutil.Visible("users", vis)).
		Count(&count).Error
	if err != nil {
		return 0, dbutil.MapError(err, "users", "count")
	}
	return count, nil
}

// CountByRole returns the number of live users holding role.
func (r *Repository) CountByRole(ctx context.Context, role entities.UserRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.User{}).
		Where("role = ? AND deleted_at IS NULL", role).
		Count(&count).Error
	if err != nil {
		return 0, dbutil.MapError(err, "users", "count")
	}
	return count, nil
}
