package metadata

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/domain"
	"github.com/mrlokans/librarian/internal/entities"
)

type fakeProvider struct {
	byISBN map[string]*BookMetadata
	calls  int
}

func (p *fakeProvider) LookupISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	p.calls++
	if meta, ok := p.byISBN[NormalizeISBN(isbn)]; ok {
		return meta, nil
	}
	return nil, ErrNotFound
}

type fakeCovers struct{ invalidated []uint }

func (f *fakeCovers) InvalidateCover(bookID uint) error {
	f.invalidated = append(f.invalidated, bookID)
	return nil
}

type enrichLog struct{ failures int }

func (l *enrichLog) LogMetadataEnrich(bookID uint, description string, err error) {
	if err != nil {
		l.failures++
	}
}

func setupEnricher(t *testing.T) (*Enricher, *books.Repository, *fakeCovers, *enrichLog) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "enrich.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Book{}))

	repo := books.NewRepository(db)
	provider := &fakeProvider{byISBN: map[string]*BookMetadata{
		"9780441013593": {
			Author:    "Frank Herbert",
			Publisher: "Ace Books",
			Year:      2005,
			CoverURL:  "https://covers.example/dune.jpg",
		},
	}}
	covers := &fakeCovers{}
	log := &enrichLog{}
	return NewEnricher(provider, repo, covers, log), repo, covers, log
}

func TestEnricher_EnrichBook_FillsOnlyEmptyFields(t *testing.T) {
	ctx := context.Background()
	e, repo, covers, _ := setupEnricher(t)

	book := &entities.Book{Name: "Dune", ISBN: "978-0-441-01359-3", Author: "F. Herbert", Copies: 2, Residue: 1}
	require.NoError(t, repo.Create(ctx, book))

	res, err := e.EnrichBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"publisher", "year", "cover_url"}, res.FieldsUpdated)
	assert.Equal(t, "F. Herbert", res.Book.Author)
	assert.Equal(t, "Ace Books", res.Book.Publisher)
	assert.Equal(t, 2005, res.Book.Year)
	assert.Equal(t, []uint{book.ID}, covers.invalidated)

	// counters are untouched
	assert.Equal(t, 2, res.Book.Copies)
	assert.Equal(t, 1, res.Book.Residue)

	res, err = e.EnrichBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, res.FieldsUpdated)
}

func TestEnricher_EnrichBook_Errors(t *testing.T) {
	ctx := context.Background()
	e, repo, _, log := setupEnricher(t)

	_, err := e.EnrichBook(ctx, 999)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	noISBN := &entities.Book{Name: "No ISBN"}
	require.NoError(t, repo.Create(ctx, noISBN))
	_, err = e.EnrichBook(ctx, noISBN.ID)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	unknown := &entities.Book{Name: "Unknown", ISBN: "1111111111"}
	require.NoError(t, repo.Create(ctx, unknown))
	_, err = e.EnrichBook(ctx, unknown.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, log.failures)
}

func TestEnricher_EnrichMissing(t *testing.T) {
	ctx := context.Background()
	e, repo, _, _ := setupEnricher(t)

	require.NoError(t, repo.Create(ctx, &entities.Book{Name: "Dune", ISBN: "9780441013593"}))
	require.NoError(t, repo.Create(ctx, &entities.Book{Name: "Unknown", ISBN: "1111111111"}))
	require.NoError(t, repo.Create(ctx, &entities.Book{Name: "Complete", ISBN: "2222222222",
		Author: "A", Publisher: "P", CoverURL: "https://covers.example/c.jpg"}))

	result, err := e.EnrichMissing(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, &BatchResult{Total: 2, Enriched: 1, Failed: 1}, result)
}
