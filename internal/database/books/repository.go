// Package books is the catalog store: book records, their copy counters and
// the filtered, paginated catalog listing.
//
// Residue and copies are only changed through TakeCopy, ReleaseCopy and
// AdjustStock, which the circulation coordinator calls inside a transaction.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetByID(ctx, 123, domain.ExcludeDeleted)
package books

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/database/dbutil"
	"github.com/mrlokans/librarian/internal/domain"
	"github.com/mrlokans/librarian/internal/entities"
)

// FilterColumns maps accepted filter fields to their columns.
var FilterColumns = map[string]string{
	"name":      "name",
	"author":    "author",
	"publisher": "publisher",
	"isbn":      "isbn",
	"remark":    "remark",
}

// SortColumns maps accepted sort fields to their columns.
var SortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"author":     "author",
	"publisher":  "publisher",
	"year":       "year",
	"price":      "price",
	"residue":    "residue",
	"created_at": "created_at",
}

// Details holds the descriptive fields an administrator may edit.
// Nil fields are left unchanged.
type Details struct {
	Name      *string
	Publisher *string
	Year      *int
	Remark    *string
	Author    *string
	ISBN      *string
	Price     *float64
	CoverURL  *string
}

// ListQuery selects a page of the catalog. FilterField and SortField must be
// keys of FilterColumns and SortColumns; callers validate them first.
type ListQuery struct {
	Offset      int
	Limit       int
	FilterField string
	FilterText  string
	SortField   string
	SortDir     domain.SortDirection
	Visibility  domain.Visibility
}

// InventoryRow pairs a book's counters with its outstanding borrow count.
type InventoryRow struct {
	BookID      uint
	Name        string
	Copies      int
	Residue     int
	Outstanding int64
}

// Consistent reports whether copies - residue matches the ledger.
func (r InventoryRow) Consistent() bool {
	return int64(r.Copies-r.Residue) == r.Outstanding && r.Residue >= 0
}

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new book. Copies and Residue are taken as given.
func (r *Repository) Create(ctx context.Context, book *entities.Book) error {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return dbutil.MapError(err, "book", book.Name)
	}
	return nil
}

// GetByID retrieves a book by its ID.
func (r *Repository) GetByID(ctx context.Context, id uint, vis domain.Visibility) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).
		Scopes(dbutil.Visible("books", vis)).
		First(&book, id).Error
	if err != nil {
		return nil, dbutil.MapError(err, "book", id)
	}
	return &book, nil
}

// UpdateDetails changes descriptive fields of a live book and returns the result.
func (r *Repository) UpdateDetails(ctx context.Context, id uint, d Details) (*entities.Book, error) {
	updates := map[string]any{}
	if d.Name != nil {
		updates["name"] = *d.Name
	}
	if d.Publisher != nil {
		updates["publisher"] = *d.Publisher
	}
	if d.Year != nil {
		updates["year"] = *d.Year
	}
	if d.Remark != nil {
		updates["remark"] = *d.Remark
	}
	if d.Author != nil {
		updates["author"] = *d.Author
	}
	if d.ISBN != nil {
		updates["isbn"] = *d.ISBN
	}
	if d.Price != nil {
		updates["price"] = *d.Price
	}
	if d.CoverURL != nil {
		updates["cover_url"] = *d.CoverURL
	}

	if len(updates) > 0 {
		updates["updated_at"] = time.Now()
		result := r.db.WithContext(ctx).Model(&entities.Book{}).
			Where("id = ? AND deleted_at IS NULL", id).
			Updates(updates)
		if result.Error != nil {
			return nil, dbutil.MapError(result.Error, "book", id)
		}
		if result.RowsAffected == 0 {
			return nil, fmt.Errorf("book %d: %w", id, domain.ErrNotFound)
		}
	}

	return r.GetByID(ctx, id, domain.ExcludeDeleted)
}

// SoftDelete marks a live book as deleted. History rows keep pointing at it.
func (r *Repository) SoftDelete(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&entities.Book{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]any{"deleted_at": at, "updated_at": at})
	if result.Error != nil {
		return dbutil.MapError(result.Error, "book", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("book %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// TakeCopy decrements residue when at least one copy of a live book is on the
// shelf. The check and the decrement are one statement, so concurrent callers
// can never drive residue below zero. Returns ErrOutOfStock when nothing changed.
func (r *Repository) TakeCopy(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&entities.Book{}).
		Where("id = ? AND residue > 0 AND deleted_at IS NULL", id).
		Updates(map[string]any{
			"residue":    gorm.Expr("residue - 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return dbutil.MapError(result.Error, "book", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("book %d: %w", id, domain.ErrOutOfStock)
	}
	return nil
}

// ReleaseCopy puts one copy back on the shelf. Soft-deleted books still
// accept returns of copies lent before deletion.
func (r *Repository) ReleaseCopy(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&entities.Book{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"residue":    gorm.Expr("residue + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return dbutil.MapError(result.Error, "book", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("book %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// AdjustStock adds delta to both copies and residue of a live book. A negative
// delta can only withdraw copies that are on the shelf; otherwise ErrConflict.
func (r *Repository) AdjustStock(ctx context.Context, id uint, delta int) error {
	result := r.db.WithContext(ctx).Model(&entities.Book{}).
		Where("id = ? AND deleted_at IS NULL AND residue + ? >= 0", id, delta).
		Updates(map[string]any{
			"copies":     gorm.Expr("copies + ?", delta),
			"residue":    gorm.Expr("residue + ?", delta),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return dbutil.MapError(result.Error, "book", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("book %d: cannot withdraw %d copies: %w", id, -delta, domain.ErrConflict)
	}
	return nil
}

// List returns one page of books and the total number matching the filter.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]entities.Book, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.Book{}).
		Scopes(dbutil.Visible("books", q.Visibility))

	if q.FilterText != "" {
		column, ok := FilterColumns[q.FilterField]
		if !ok {
			return nil, 0, domain.NewValidationError("search_by", "unsupported filter field")
		}
		query = query.Where(dbutil.ContainsClause(column), dbutil.ContainsPattern(q.FilterText))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, dbutil.MapError(err, "books", "count")
	}

	sortColumn := "id"
	if q.SortField != "" {
		column, ok := SortColumns[q.SortField]
		if !ok {
			return nil, 0, domain.NewValidationError("search_sort", "unsupported sort field")
		}
		sortColumn = column
	}
	dir := "ASC"
	if q.SortDir == domain.SortDesc {
		dir = "DESC"
	}
	order := sortColumn + " " + dir
	if sortColumn != "id" {
		order += ", id " + dir
	}

	var items []entities.Book
	err := query.Order(order).Limit(q.Limit).Offset(q.Offset).Find(&items).Error
	if err != nil {
		return nil, 0, dbutil.MapError(err, "books", "list")
	}
	return items, total, nil
}

// Count returns the number of books visible under vis.
func (r *Repository) Count(ctx context.Context, vis domain.Visibility) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).
		Scopes(dbutil.Visible("books", vis)).
		Count(&count).Error
	if err != nil {
		return 0, dbutil.MapError(err, "books", "count")
	}
	return count, nil
}

// Inventory returns the counters of every book, deleted or not, together
// with the number of outstanding borrows recorded against it.
func (r *Repository) Inventory(ctx context.Context) ([]InventoryRow, error) {
	var rows []InventoryRow
	err := r.db.WithContext(ctx).
		Table("books").
		Select(`books.id AS book_id, books.name AS name, books.copies AS copies, books.residue AS residue,
			COUNT(histories.id) AS outstanding`).
		Joins(`LEFT JOIN histories ON histories.book_id = books.id
			AND histories.is_back = ? AND histories.deleted_at IS NULL`, false).
		Group("books.id, books.name, books.copies, books.residue").
		Order("books.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, dbutil.MapError(err, "books", "inventory")
	}
	return rows, nil
}

// MissingMetadata returns live books with an ISBN but no cover, author or publisher.
func (r *Repository) MissingMetadata(ctx context.Context, limit int) ([]entities.Book, error) {
	var items []entities.Book
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL AND isbn <> ''").
		Where("cover_url = '' OR author = '' OR publisher = ''").
		Order("id ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, dbutil.MapError(err, "books", "missing metadata")
	}
	return items, nil
}
