package metadata

import (
	"context"
	"fmt"

	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/domain"
	"github.com/mrlokans/librarian/internal/entities"
)

// Provider looks up edition metadata by ISBN.
type Provider interface {
	LookupISBN(ctx context.Context, isbn string) (*BookMetadata, error)
}

// CoverInvalidator drops a cached cover once the cover URL changes.
type CoverInvalidator interface {
	InvalidateCover(bookID uint) error
}

// Recorder receives enrichment outcomes for the audit trail.
type Recorder interface {
	LogMetadataEnrich(bookID uint, description string, err error)
}

// Result describes one enrichment.
type Result struct {
	Book          *entities.Book `json:"book"`
	FieldsUpdated []string       `json:"fields_updated"`
}

// BatchResult summarizes EnrichMissing.
type BatchResult struct {
	Total    int `json:"total"`
	Enriched int `json:"enriched"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Enricher fills empty catalog fields from a Provider. It only ever writes
// descriptive fields; copy counters are never touched.
type Enricher struct {
	provider Provider
	books    *books.Repository
	covers   CoverInvalidator
	recorder Recorder
}

// NewEnricher creates an Enricher. covers and recorder may be nil.
func NewEnricher(provider Provider, repo *books.Repository, covers CoverInvalidator, recorder Recorder) *Enricher {
	return &Enricher{
		provider: provider,
		books:    repo,
		covers:   covers,
		recorder: recorder,
	}
}

// EnrichBook looks up the book's ISBN and fills author, publisher, year and
// cover when they are empty. Values entered by an administrator win.
func (e *Enricher) EnrichBook(ctx context.Context, bookID uint) (*Result, error) {
	book, err := e.books.GetByID(ctx, bookID, domain.ExcludeDeleted)
	if err != nil {
		return nil, err
	}
	if NormalizeISBN(book.ISBN) == "" {
		return nil, domain.NewValidationError("isbn", "book has no valid ISBN")
	}

	meta, err := e.provider.LookupISBN(ctx, book.ISBN)
	if err != nil {
		e.record(bookID, "lookup failed", err)
		return nil, fmt.Errorf("lookup book %d: %w", bookID, err)
	}

	details, fields := missingDetails(book, meta)
	if len(fields) == 0 {
		return &Result{Book: book, FieldsUpdated: fields}, nil
	}

	if details.CoverURL != nil && e.covers != nil {
		_ = e.covers.InvalidateCover(bookID)
	}
	updated, err := e.books.UpdateDetails(ctx, bookID, details)
	if err != nil {
		e.record(bookID, "update failed", err)
		return nil, err
	}

	e.record(bookID, fmt.Sprintf("Filled %v", fields), nil)
	return &Result{Book: updated, FieldsUpdated: fields}, nil
}

// EnrichMissing enriches up to limit books that have an ISBN but lack some
// metadata. A failure on one book does not stop the batch.
func (e *Enricher) EnrichMissing(ctx context.Context, limit int) (*BatchResult, error) {
	candidates, err := e.books.MissingMetadata(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Total: len(candidates)}
	for _, book := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		res, err := e.EnrichBook(ctx, book.ID)
		switch {
		case err != nil:
			result.Failed++
		case len(res.FieldsUpdated) == 0:
			result.Skipped++
		default:
			result.Enriched++
		}
	}
	return result, nil
}

func (e *Enricher) record(bookID uint, description string, err error) {
	if e.recorder != nil {
		e.recorder.LogMetadataEnrich(bookID, description, err)
	}
}

func missingDetails(book *entities.Book, meta *BookMetadata) (books.Details, []string) {
	var d books.Details
	fields := []string{}

	if book.Author == "" && meta.Author != "" {
		d.Author = &meta.Author
		fields = append(fields, "author")
	}
	if book.Publisher == "" && meta.Publisher != "" {
		d.Publisher = &meta.Publisher
		fields = append(fields, "publisher")
	}
	if book.Year == 0 && meta.Year != 0 {
		d.Year = &meta.Year
		fields = append(fields, "year")
	}
	if book.CoverURL == "" && meta.CoverURL != "" {
		d.CoverURL = &meta.CoverURL
		fields = append(fields, "cover_url")
	}
	return d, fields
}
