package books

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarian/internal/domain"
	"github.com/mrlokans/librarian/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "books.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Book{}, &entities.History{})
	require.NoError(t, err)

	return NewRepository(db), db
}

func createBook(t *testing.T, repo *Repository, name string, copies int) *entities.Book {
	t.Helper()
	book := &entities.Book{Name: name, Author: "Author of " + name, Copies: copies, Residue: copies}
	require.NoError(t, repo.Create(context.Background(), book))
	return book
}

func TestRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestDB(t)
	book := createBook(t, repo, "Dune", 2)

	t.Run("found", func(t *testing.T) {
		got, err := repo.GetByID(ctx, book.ID, domain.ExcludeDeleted)
		require.NoError(t, err)
		assert.Equal(t, "Dune", got.Name)
		assert.Equal(t, 2, got.Residue)
	})

	t.Run("missing is not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 999, domain.ExcludeDeleted)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("deleted only visible when included", func(t *testing.T) {
		require.NoError(t, repo.SoftDelete(ctx, book.ID, time.Now()))

		_, err := repo.GetByID(ctx, book.ID, domain.ExcludeDeleted)
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		got, err := repo.GetByID(ctx, book.ID, domain.IncludeDeleted)
		require.NoError(t, err)
		assert.True(t, got.IsDeleted())
	})
}

func TestRepository_SoftDeleteTwice(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestDB(t)
	book := createBook(t, repo, "Once", 1)

	require.NoError(t, repo.SoftDelete(ctx, book.ID, time.Now()))
	err := repo.SoftDelete(ctx, book.ID, time.Now())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRepository_TakeAndReleaseCopy(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestDB(t)
	book := createBook(t, repo, "Single", 1)

	require.NoError(t, repo.TakeCopy(ctx, book.ID))

	err := repo.TakeCopy(ctx, book.ID)
	assert.True(t, errors.Is(err, domain.ErrOutOfStock))

	got, err := repo.GetByID(ctx, book.ID, domain.ExcludeDeleted)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Residue)

	require.NoError(t, repo.ReleaseCopy(ctx, book.ID))
	got, err = repo.GetByID(ctx, book.ID, domain.ExcludeDeleted)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Residue)
	assert.Equal(t, 1, got.Copies)
}

func TestRepository_TakeCopy_DeletedBook(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestDB(t)
	book := createBook(t, repo, "Gone", 3)
	require.NoError(t, repo.SoftDelete(ctx, book.ID, time.Now()))

	err := repo.TakeCopy(ctx, book.ID)
	assert.True(t, errors.Is(err, domain.ErrOutOfStock))

	// Copies lent before deletion can still come back.
	assert.NoError(t, repo.ReleaseCopy(ctx, book.ID))
}

func TestRepository_AdjustStock(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestDB(t)
	book := createBook(t, repo, "Stock", 2)

	require.NoError(t, repo.AdjustStock(ctx, book.ID, 3))
	got, err := repo.GetByID(ctx, book.ID, domain.ExcludeDeleted)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Copies)
	assert.Equal(t, 5, got.Residue)

	require.NoError(t, repo.AdjustStock(ctx, book.ID, -5))

	err = repo.AdjustStock(ctx, book.ID, -1)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestRepository_UpdateDetails(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestDB(t)
	book := createBook(t, repo, "Draft", 4)

	name := "Final"
	year := 2021
	got, err := repo.UpdateDetails(ctx, book.ID, Details{Name: &name, Year: &year})
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Name)
	assert.Equal(t, 2021, got.Year)
	assert.Equal(t, "Author of Draft", got.Author)
	assert.Equal(t, 4, got.Residue)

	_, err = repo.UpdateDetails(ctx, 999, Details{Name: &name})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRepository_List(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestDB(t)
	createBook(t, repo, "Go in Action", 1)
	createBook(t, repo, "The Go Programming Language", 2)
	createBook(t, repo, "Rust in Action", 3)
	createBook(t, repo, "100% Go_lang", 1)
	deleted := createBook(t, repo, "Go Deleted", 1)
	require.NoError(t, repo.SoftDelete(ctx, deleted.ID, time.Now()))

	t.Run("filter is case insensitive and excludes deleted", func(t *testing.T) {
		items, total, err := repo.List(ctx, ListQuery{Limit: 10, FilterField: "name", FilterText: "go"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, items, 3)
	})

	t.Run("like wildcards are literal", func(t *testing.T) {
		items, total, err := repo.List(ctx, ListQuery{Limit: 10, FilterField: "name", FilterText: "0%"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "100% Go_lang", items[0].Name)
	})

	t.Run("sort and page", func(t *testing.T) {
		items, total, err := repo.List(ctx, ListQuery{Limit: 2, Offset: 0, SortField: "residue", SortDir: domain.SortDesc})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, items, 2)
		assert.Equal(t, "Rust in Action", items[0].Name)
	})

	t.Run("include deleted", func(t *testing.T) {
		_, total, err := repo.List(ctx, ListQuery{Limit: 10, Visibility: domain.IncludeDeleted})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
	})

	t.Run("unknown sort field", func(t *testing.T) {
		_, _, err := repo.List(ctx, ListQuery{Limit: 10, SortField: "password"})
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})
}

func TestRepository_Inventory(t *testing.T) {
	ctx := context.Background()
	repo, db := setupTestDB(t)
	book := createBook(t, repo, "Counted", 3)
	other := createBook(t, repo, "Untouched", 1)

	require.NoError(t, repo.TakeCopy(ctx, book.ID))
	require.NoError(t, db.Create(&entities.History{BorrowRef: "r1", UserID: 1, BookID: book.ID, BorrowedAt: time.Now()}).Error)
	require.NoError(t, db.Create(&entities.History{BorrowRef: "r2", UserID: 1, BookID: book.ID, BorrowedAt: time.Now(), IsBack: true}).Error)

	rows, err := repo.Inventory(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, book.ID, rows[0].BookID)
	assert.Equal(t, int64(1), rows[0].Outstanding)
	assert.True(t, rows[0].Consistent())

	assert.Equal(t, other.ID, rows[1].BookID)
	assert.Equal(t, int64(0), rows[1].Outstanding)
	assert.True(t, rows[1].Consistent())

	// Drift the counter behind the ledger's back.
	require.NoError(t, db.Model(&entities.Book{}).Where("id = ?", other.ID).Update("residue", 0).Error)
	rows, err = repo.Inventory(ctx)
	require.NoError(t, err)
	assert.False(t, rows[1].Consistent())
}

func TestRepository_MissingMetadata(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestDB(t)
	require.NoError(t, repo.Create(ctx, &entities.Book{Name: "No ISBN"}))
	require.NoError(t, repo.Create(ctx, &entities.Book{Name: "Bare", ISBN: "9780134190440"}))
	require.NoError(t, repo.Create(ctx, &entities.Book{
		Name: "Complete", ISBN: "9780262033848", Author: "Cormen", Publisher: "MIT", CoverURL: "http://x/y.jpg",
	}))

	items, err := repo.MissingMetadata(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Bare", items[0].Name)
}
