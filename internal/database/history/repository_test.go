package history

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

type fixture struct {
	repo  *Repository
	db    *gorm.DB
	alice entities.User
	bob   entities.User
	dune  entities.Book
	sicp  entities.Book
}

func setupTestDB(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "history.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.Book{}, &entities.History{}))

	f := &fixture{
		repo:  NewRepository(db),
		db:    db,
		alice: entities.User{Email: "alice@example.com", Role: entities.UserRoleUser},
		bob:   entities.User{Email: "bob@example.com", Role: entities.UserRoleUser},
		dune:  entities.Book{Name: "Dune", ISBN: "9780441013593", Copies: 5, Residue: 5},
		sicp:  entities.Book{Name: "SICP", ISBN: "9780262510875", Copies: 5, Residue: 5},
	}
	require.NoError(t, db.Create(&f.alice).Error)
	require.NoError(t, db.Create(&f.bob).Error)
	require.NoError(t, db.Create(&f.dune).Error)
	require.NoError(t, db.Create(&f.sicp).Error)
	return f
}

func (f *fixture) borrow(t *testing.T, ref string, user entities.User, book entities.Book, at time.Time) *entities.History {
	t.Helper()
	h := &entities.History{BorrowRef: ref, UserID: user.ID, BookID: book.ID, BorrowedAt: at, CreatedAt: at}
	require.NoError(t, f.repo.Create(context.Background(), h))
	return h
}

func TestRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	f := setupTestDB(t)
	h := f.borrow(t, "ref-1", f.alice, f.dune, time.Now())

	got, err := f.repo.GetByReference(ctx, "ref-1", domain.ExcludeDeleted)
	require.NoError(t, err)
	assert.Equal(t, h.ID, got.ID)
	assert.True(t, got.IsOutstanding())

	_, err = f.repo.GetByReference(ctx, "missing", domain.ExcludeDeleted)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRepository_DuplicateReference(t *testing.T) {
	f := setupTestDB(t)
	f.borrow(t, "dup", f.alice, f.dune, time.Now())

	err := f.repo.Create(context.Background(), &entities.History{BorrowRef: "dup", UserID: f.bob.ID, BookID: f.sicp.ID})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestRepository_MarkReturned(t *testing.T) {
	ctx := context.Background()
	f := setupTestDB(t)
	h := f.borrow(t, "ref-1", f.alice, f.dune, time.Now())

	require.NoError(t, f.repo.MarkReturned(ctx, h.ID, time.Now()))

	got, err := f.repo.GetByReference(ctx, "ref-1", domain.ExcludeDeleted)
	require.NoError(t, err)
	assert.True(t, got.IsBack)
	require.NotNil(t, got.ReturnedAt)

	err = f.repo.MarkReturned(ctx, h.ID, time.Now())
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestRepository_Counts(t *testing.T) {
	ctx := context.Background()
	f := setupTestDB(t)
	now := time.Now()
	f.borrow(t, "a1", f.alice, f.dune, now)
	f.borrow(t, "a2", f.alice, f.sicp, now)
	returned := f.borrow(t, "a3", f.alice, f.dune, now)
	f.borrow(t, "b1", f.bob, f.dune, now)
	require.NoError(t, f.repo.MarkReturned(ctx, returned.ID, now))

	outstanding, err := f.repo.CountOutstanding(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), outstanding)

	all, err := f.repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), all)

	total, open, err := f.repo.CountForUser(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(2), open)

	byUser, err := f.repo.OutstandingByUser(ctx, []uint{f.alice.ID, f.bob.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), byUser[f.alice.ID])
	assert.Equal(t, int64(1), byUser[f.bob.ID])
	assert.Zero(t, byUser[999])

	forBook, err := f.repo.OutstandingForBook(ctx, f.dune.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), forBook)
}

func TestRepository_ListReport(t *testing.T) {
	ctx := context.Background()
	f := setupTestDB(t)
	base := time.Now().Add(-time.Hour)
	f.borrow(t, "r1", f.alice, f.dune, base)
	f.borrow(t, "r2", f.bob, f.sicp, base.Add(time.Minute))
	f.borrow(t, "r3", f.alice, f.sicp, base.Add(2*time.Minute))

	t.Run("newest first with joined fields", func(t *testing.T) {
		rows, total, err := f.repo.ListReport(ctx, ReportQuery{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, rows, 3)
		assert.Equal(t, "r3", rows[0].BorrowRef)
		assert.Equal(t, "alice@example.com", rows[0].UserEmail)
		assert.Equal(t, "SICP", rows[0].BookName)
		assert.Equal(t, "9780262510875", rows[0].BookISBN)
		assert.Equal(t, "r1", rows[2].BorrowRef)
	})

	t.Run("filter by email", func(t *testing.T) {
		rows, total, err := f.repo.ListReport(ctx, ReportQuery{Limit: 10, FilterType: "email", FilterText: "BOB"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "r2", rows[0].BorrowRef)
	})

	t.Run("filter by isbn", func(t *testing.T) {
		_, total, err := f.repo.ListReport(ctx, ReportQuery{Limit: 10, FilterType: "isbn", FilterText: "0441"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("unknown filter type is ignored", func(t *testing.T) {
		_, total, err := f.repo.ListReport(ctx, ReportQuery{Limit: 10, FilterType: "password", FilterText: "x"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("restricted to one user", func(t *testing.T) {
		rows, total, err := f.repo.ListReport(ctx, ReportQuery{Limit: 10, UserID: f.alice.ID, FilterType: "name", FilterText: "sic"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "r3", rows[0].BorrowRef)
	})

	t.Run("soft deleted parents still resolve", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, f.db.Model(&entities.User{}).Where("id = ?", f.bob.ID).Update("deleted_at", now).Error)
		require.NoError(t, f.db.Model(&entities.Book{}).Where("id = ?", f.sicp.ID).Update("deleted_at", now).Error)

		rows, total, err := f.repo.ListReport(ctx, ReportQuery{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Equal(t, "bob@example.com", rows[1].UserEmail)
	})
}
