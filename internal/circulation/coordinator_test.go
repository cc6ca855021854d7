package circulation

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/domain"
	"github.com/mrlokans/librarian/internal/entities"
)

type recordedCall struct {
	op  string
	ref string
	err error
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeRecorder) LogBorrow(userID, bookID uint, reference string, err error) {
	f.add(recordedCall{op: "borrow", ref: reference, err: err})
}

func (f *fakeRecorder) LogReturn(userID uint, reference string, override bool, err error) {
	f.add(recordedCall{op: "return", ref: reference, err: err})
}

func (f *fakeRecorder) LogRestock(userID, bookID uint, delta int, err error) {
	f.add(recordedCall{op: "restock", err: err})
}

func (f *fakeRecorder) add(c recordedCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

type testEnv struct {
	db     *database.Database
	coord  *Coordinator
	rec    *fakeRecorder
	reader entities.User
	other  entities.User
	admin  entities.User
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewDatabase(config.Database{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "circulation.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:     db,
		rec:    &fakeRecorder{},
		reader: entities.User{Email: "reader@example.com", Role: entities.UserRoleUser},
		other:  entities.User{Email: "other@example.com", Role: entities.UserRoleUser},
		admin:  entities.User{Email: "admin@example.com", Role: entities.UserRoleAdmin},
	}
	env.coord = NewCoordinator(db, env.rec)

	ctx := context.Background()
	users := db.Stores().Users
	require.NoError(t, users.Create(ctx, &env.reader))
	require.NoError(t, users.Create(ctx, &env.other))
	require.NoError(t, users.Create(ctx, &env.admin))
	return env
}

func (e *testEnv) addBook(t *testing.T, name string, copies int) *entities.Book {
	t.Helper()
	book := &entities.Book{Name: name, Copies: copies, Residue: copies}
	require.NoError(t, e.db.Stores().Books.Create(context.Background(), book))
	return book
}

func (e *testEnv) residue(t *testing.T, bookID uint) int {
	t.Helper()
	book, err := e.db.Stores().Books.GetByID(context.Background(), bookID, domain.IncludeDeleted)
	require.NoError(t, err)
	return book.Residue
}

func (e *testEnv) assertConsistent(t *testing.T) {
	t.Helper()
	report, err := e.coord.CheckInventory(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Consistent(), "inventory mismatches: %+v", report.Mismatches)
}

func TestCoordinator_Borrow(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	book := env.addBook(t, "Dune", 2)

	ref, err := env.coord.Borrow(ctx, BorrowCommand{UserID: env.reader.ID, BookID: book.ID})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{8}-[0-9a-f-]{36}$`), ref)
	assert.Equal(t, 1, env.residue(t, book.ID))

	record, err := env.db.Stores().History.GetByReference(ctx, ref, domain.ExcludeDeleted)
	require.NoError(t, err)
	assert.Equal(t, env.reader.ID, record.UserID)
	assert.Equal(t, book.ID, record.BookID)
	assert.False(t, record.IsBack)
	assert.False(t, record.BorrowedAt.IsZero())

	env.assertConsistent(t)
	require.Len(t, env.rec.calls, 1)
	assert.Equal(t, ref, env.rec.calls[0].ref)
}

func TestCoordinator_Borrow_Errors(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	book := env.addBook(t, "Available", 1)
	empty := env.addBook(t, "Empty", 0)
	withdrawn := env.addBook(t, "Withdrawn", 1)
	require.NoError(t, env.db.Stores().Books.SoftDelete(ctx, withdrawn.ID, time.Now()))
	require.NoError(t, env.db.Stores().Users.SoftDelete(ctx, env.other.ID, time.Now()))

	tests := []struct {
		name    string
		cmd     BorrowCommand
		wantErr error
	}{
		{"missing user id", BorrowCommand{BookID: book.ID}, domain.ErrValidation},
		{"missing book id", BorrowCommand{UserID: env.reader.ID}, domain.ErrValidation},
		{"unknown user", BorrowCommand{UserID: 999, BookID: book.ID}, domain.ErrNotFound},
		{"deleted user", BorrowCommand{UserID: env.other.ID, BookID: book.ID}, domain.ErrNotFound},
		{"unknown book", BorrowCommand{UserID: env.reader.ID, BookID: 999}, domain.ErrNotFound},
		{"deleted book", BorrowCommand{UserID: env.reader.ID, BookID: withdrawn.ID}, domain.ErrNotFound},
		{"no copies left", BorrowCommand{UserID: env.reader.ID, BookID: empty.ID}, domain.ErrOutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := env.coord.Borrow(ctx, tt.cmd)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Empty(t, ref)
		})
	}

	assert.Equal(t, 1, env.residue(t, book.ID))
	assert.Equal(t, 0, env.residue(t, empty.ID))
	env.assertConsistent(t)
}

func TestCoordinator_Borrow_RollsBackOnLedgerFailure(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	book := env.addBook(t, "Rollback", 3)
	env.coord.newRef = func(time.Time) string { return "fixed-ref" }

	_, err := env.coord.Borrow(ctx, BorrowCommand{UserID: env.reader.ID, BookID: book.ID})
	require.NoError(t, err)

	// Same reference again: the copy is taken, then the ledger insert fails.
	_, err = env.coord.Borrow(ctx, BorrowCommand{UserID: env.reader.ID, BookID: book.ID})
	require.Error(t, err)

	assert.Equal(t, 2, env.residue(t, book.ID))
	env.assertConsistent(t)
}

func TestCoordinator_Borrow_CancelledContext(t *testing.T) {
	env := setupTestEnv(t)
	book := env.addBook(t, "Abandoned", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.coord.Borrow(ctx, BorrowCommand{UserID: env.reader.ID, BookID: book.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))

	assert.Equal(t, 1, env.residue(t, book.ID))
	env.assertConsistent(t)
}

func TestCoordinator_ConcurrentBorrowOfLastCopy(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	book := env.addBook(t, "Last Copy", 1)

	var (
		wg      sync.WaitGroup
		results = make([]error, 2)
		refs    = make([]string, 2)
	)
	users := []uint{env.reader.ID, env.other.ID}
	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			refs[i], results[i] = env.coord.Borrow(ctx, BorrowCommand{UserID: users[i], BookID: book.ID})
		}(i)
	}
	wg.Wait()

	successes, outOfStock := 0, 0
	for i, err := range results {
		switch {
		case err == nil:
			successes++
			assert.NotEmpty(t, refs[i])
		case errors.Is(err, domain.ErrOutOfStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, outOfStock)
	assert.Equal(t, 0, env.residue(t, book.ID))
	env.assertConsistent(t)
}

func TestCoordinator_ConcurrentBorrowAndReturn(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	book := env.addBook(t, "Busy", 3)

	const workers = 12
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := env.reader.ID
			if i%2 == 1 {
				user = env.other.ID
			}
			ref, err := env.coord.Borrow(ctx, BorrowCommand{UserID: user, BookID: book.ID})
			if err != nil {
				assert.True(t, errors.Is(err, domain.ErrOutOfStock), "got %v", err)
				return
			}
			assert.NoError(t, env.coord.Return(ctx, ReturnCommand{Reference: ref, UserID: user}))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, env.residue(t, book.ID))
	env.assertConsistent(t)
}

func TestCoordinator_Return(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	book := env.addBook(t, "Round Trip", 1)

	ref, err := env.coord.Borrow(ctx, BorrowCommand{UserID: env.reader.ID, BookID: book.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, env.residue(t, book.ID))

	require.NoError(t, env.coord.Return(ctx, ReturnCommand{Reference: ref, UserID: env.reader.ID}))
	assert.Equal(t, 1, env.residue(t, book.ID))

	record, err := env.db.Stores().History.GetByReference(ctx, ref, domain.ExcludeDeleted)
	require.NoError(t, err)
	assert.True(t, record.IsBack)
	assert.NotNil(t, record.ReturnedAt)
	env.assertConsistent(t)

	t.Run("double return is a conflict and leaves residue alone", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			err := env.coord.Return(ctx, ReturnCommand{Reference: ref, UserID: env.reader.ID})
			assert.True(t, errors.Is(err, domain.ErrConflict), "got %v", err)
			assert.Equal(t, 1, env.residue(t, book.ID))
		}
	})
}

func TestCoordinator_Return_Errors(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	book := env.addBook(t, "Owned", 2)

	ref, err := env.coord.Borrow(ctx, BorrowCommand{UserID: env.reader.ID, BookID: book.ID})
	require.NoError(t, err)

	t.Run("missing reference", func(t *testing.T) {
		err := env.coord.Return(ctx, ReturnCommand{UserID: env.reader.ID})
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})

	t.Run("unknown reference", func(t *testing.T) {
		err := env.coord.Return(ctx, ReturnCommand{Reference: "nope", UserID: env.reader.ID})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("someone else's borrow", func(t *testing.T) {
		err := env.coord.Return(ctx, ReturnCommand{Reference: ref, UserID: env.other.ID})
		assert.True(t, errors.Is(err, domain.ErrForbidden))
		assert.Equal(t, 1, env.residue(t, book.ID))
	})

	t.Run("administrative override", func(t *testing.T) {
		err := env.coord.Return(ctx, ReturnCommand{Reference: ref, UserID: env.admin.ID, AdminOverride: true})
		require.NoError(t, err)
		assert.Equal(t, 2, env.residue(t, book.ID))
	})

	env.assertConsistent(t)
}

func TestCoordinator_Return_DeletedBook(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	book := env.addBook(t, "Withdrawn Later", 1)

	ref, err := env.coord.Borrow(ctx, BorrowCommand{UserID: env.reader.ID, BookID: book.ID})
	require.NoError(t, err)
	require.NoError(t, env.db.Stores().Books.SoftDelete(ctx, book.ID, time.Now()))

	require.NoError(t, env.coord.Return(ctx, ReturnCommand{Reference: ref, UserID: env.reader.ID}))
	assert.Equal(t, 1, env.residue(t, book.ID))
}

func TestCoordinator_ConcurrentDoubleReturn(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	book := env.addBook(t, "Replayed", 1)

	ref, err := env.coord.Borrow(ctx, BorrowCommand{UserID: env.reader.ID, BookID: book.ID})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = env.coord.Return(ctx, ReturnCommand{Reference: ref, UserID: env.reader.ID})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrConflict), "got %v", err)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, env.residue(t, book.ID))
}

func TestCoordinator_RestockScenario(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	book := env.addBook(t, "Sold Out", 0)

	_, err := env.coord.Borrow(ctx, BorrowCommand{UserID: env.reader.ID, BookID: book.ID})
	require.True(t, errors.Is(err, domain.ErrOutOfStock))

	require.NoError(t, env.coord.Restock(ctx, RestockCommand{BookID: book.ID, Delta: 1, ActorID: env.admin.ID}))
	assert.Equal(t, 1, env.residue(t, book.ID))

	ref, err := env.coord.Borrow(ctx, BorrowCommand{UserID: env.reader.ID, BookID: book.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, env.residue(t, book.ID))

	outstanding, err := env.db.Stores().History.OutstandingForBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), outstanding)

	record, err := env.db.Stores().History.GetByReference(ctx, ref, domain.ExcludeDeleted)
	require.NoError(t, err)
	assert.Equal(t, env.reader.ID, record.UserID)
	env.assertConsistent(t)
}

func TestCoordinator_Restock_Errors(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	book := env.addBook(t, "Lent", 1)
	_, err := env.coord.Borrow(ctx, BorrowCommand{UserID: env.reader.ID, BookID: book.ID})
	require.NoError(t, err)

	err = env.coord.Restock(ctx, RestockCommand{BookID: book.ID})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	err = env.coord.Restock(ctx, RestockCommand{BookID: 999, Delta: 1})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// The only copy is lent out, so it cannot be withdrawn.
	err = env.coord.Restock(ctx, RestockCommand{BookID: book.ID, Delta: -1})
	assert.True(t, errors.Is(err, domain.ErrConflict))
	env.assertConsistent(t)
}

func TestCoordinator_CheckInventory_DetectsDrift(t *testing.T) {
	env := setupTestEnv(t)
	book := env.addBook(t, "Drifted", 2)
	require.NoError(t, env.db.DB.Model(&entities.Book{}).Where("id = ?", book.ID).Update("residue", 1).Error)

	report, err := env.coord.CheckInventory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, book.ID, report.Mismatches[0].BookID)
}

func TestNewReference_Unique(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref := NewReference(now)
		assert.False(t, seen[ref])
		seen[ref] = true
	}
	assert.Contains(t, NewReference(now), "20261019-")
}
