// Package history is the borrow ledger: one record per borrowed copy.
//
// Records are only ever created and then closed by MarkReturned. Reads used by
// reports join the owning user and book without a soft-delete filter on them,
// so a borrow always resolves to the account and title it was made against.
package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/database/dbutil"
	"github.com/mrlokans/librarian/internal/domain"
	"github.com/mrlokans/librarian/internal/entities"
)

// FilterColumns maps report filter types to the joined column they search.
var FilterColumns = map[string]string{
	"email": "users.email",
	"name":  "books.name",
	"isbn":  "books.isbn",
}

// ReportRow is the flattened projection of a borrow with its user and book.
type ReportRow struct {
	ID         uint       `json:"id"`
	BorrowRef  string     `json:"borrow_id"`
	UserID     uint       `json:"user_id"`
	UserEmail  string     `json:"email"`
	BookID     uint       `json:"book_id"`
	BookName   string     `json:"name"`
	BookISBN   string     `json:"isbn"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	IsBack     bool       `json:"is_back"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ReportQuery selects a page of the joined ledger. FilterType values outside
// FilterColumns are ignored.
type ReportQuery struct {
	Offset     int
	Limit      int
	UserID     uint // 0 means all users
	FilterType string
	FilterText string
}

// Repository handles all borrow ledger database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new history repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts an outstanding borrow record.
func (r *Repository) Create(ctx context.Context, h *entities.History) error {
	if err := r.db.WithContext(ctx).Create(h).Error; err != nil {
		return dbutil.MapError(err, "history", h.BorrowRef)
	}
	return nil
}

// GetByReference retrieves a borrow record by its borrow reference.
func (r *Repository) GetByReference(ctx context.Context, ref string, vis domain.Visibility) (*entities.History, error) {
	var h entities.History
	err := r.db.WithContext(ctx).
		Scopes(dbutil.Visible("histories", vis)).
		Where("borrow_id = ?", ref).
		First(&h).Error
	if err != nil {
		return nil, dbutil.MapError(err, "history", ref)
	}
	return &h, nil
}

// MarkReturned closes an outstanding record. The is_back guard makes a
// concurrent or replayed return fail with ErrConflict instead of closing twice.
func (r *Repository) MarkReturned(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&entities.History{}).
		Where("id = ? AND is_back = ?", id, false).
		Updates(map[string]any{
			"is_back":     true,
			"returned_at": at,
			"updated_at":  at,
		})
	if result.Error != nil {
		return dbutil.MapError(result.Error, "history", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("history %d: already returned: %w", id, domain.ErrConflict)
	}
	return nil
}

// CountOutstanding returns the number of live, unreturned borrows.
func (r *Repository) CountOutstanding(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.History{}).
		Where("is_back = ? AND deleted_at IS NULL", false).
		Count(&count).Error
	if err != nil {
		return 0, dbutil.MapError(err, "histories", "count")
	}
	return count, nil
}

// CountAll returns the number of live borrow records, returned or not.
func (r *Repository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.History{}).
		Where("deleted_at IS NULL").
		Count(&count).Error
	if err != nil {
		return 0, dbutil.MapError(err, "histories", "count")
	}
	return count, nil
}

// CountForUser returns the total and outstanding borrows of one user.
func (r *Repository) CountForUser(ctx context.Context, userID uint) (total, outstanding int64, err error) {
	var row struct {
		Total       int64
		Outstanding int64
	}
	err = r.db.WithContext(ctx).Model(&entities.History{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_back = ? THEN 1 ELSE 0 END), 0) AS outstanding", false).
		Where("user_id = ? AND deleted_at IS NULL", userID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, dbutil.MapError(err, "histories", userID)
	}
	return row.Total, row.Outstanding, nil
}

// OutstandingByUser returns the outstanding borrow count for each of userIDs.
// Users without outstanding borrows are absent from the map.
func (r *Repository) OutstandingByUser(ctx context.Context, userIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		UserID uint
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&entities.History{}).
		Select("user_id, COUNT(*) AS count").
		Where("user_id IN ? AND is_back = ? AND deleted_at IS NULL", userIDs, false).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, dbutil.MapError(err, "histories", "outstanding by user")
	}
	for _, row := range rows {
		counts[row.UserID] = row.Count
	}
	return counts, nil
}

// OutstandingForBook returns the number of unreturned borrows of one book.
func (r *Repository) OutstandingForBook(ctx context.Context, bookID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.History{}).
		Where("book_id = ? AND is_back = ? AND deleted_at IS NULL", bookID, false).
		Count(&count).Error
	if err != nil {
		return 0, dbutil.MapError(err, "histories", bookID)
	}
	return count, nil
}

// ListReport returns one page of the joined ledger, newest first.
func (r *Repository) ListReport(ctx context.Context, q ReportQuery) ([]ReportRow, int64, error) {
	query := r.db.WithContext(ctx).
		Table("histories").
		Joins("JOIN users ON users.id = histories.user_id").
		Joins("JOIN books ON books.id = histories.book_id").
		Where("histories.deleted_at IS NULL")

	if q.UserID != 0 {
		query = query.Where("histories.user_id = ?", q.UserID)
	}
	if column, ok := FilterColumns[q.FilterType]; ok && q.FilterText != "" {
		query = query.Where(dbutil.ContainsClause(column), dbutil.ContainsPattern(q.FilterText))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, dbutil.MapError(err, "histories", "count")
	}

	var rows []ReportRow
	err := query.
		Select(`histories.id AS id, histories.borrow_id AS borrow_ref,
			histories.user_id AS user_id, users.email AS user_email,
			histories.book_id AS book_id, books.name AS book_name, books.isbn AS book_isbn,
			histories.borrowed_at AS borrowed_at, histories.is_back AS is_back,
			histories.returned_at AS returned_at, histories.created_at AS created_at`).
		Order("histories.created_at DESC, histories.id DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, dbutil.MapError(err, "histories", "list")
	}
	return rows, total, nil
}
