// Package catalog manages book records on behalf of administrators.
// Copy counters are set once at creation; afterwards only the circulation
// coordinator changes them.
package catalog

import (
	"context"
	"time"

	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/domain"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/validation"
)

// BookInput is the payload for a new book.
type BookInput struct {
	Name      string  `json:"name" validate:"required,max=512"`
	Publisher string  `json:"publisher" validate:"max=256"`
	Year      int     `json:"year" validate:"gte=0,lte=9999"`
	Remark    string  `json:"remark" validate:"max=1024"`
	Author    string  `json:"author" validate:"max=256"`
	ISBN      string  `json:"isbn" validate:"max=20"`
	Price     float64 `json:"price" validate:"gte=0"`
	Copies    int     `json:"residue" validate:"gte=0"`
	CoverURL  string  `json:"cover_url" validate:"omitempty,url,max=2048"`
}

// BookPatch changes descriptive fields of a book. Nil fields are unchanged.
// There is deliberately no residue field.
type BookPatch struct {
	Name      *string  `json:"name" validate:"omitnil,min=1,max=512"`
	Publisher *string  `json:"publisher" validate:"omitempty,max=256"`
	Year      *int     `json:"year" validate:"omitempty,gte=0,lte=9999"`
	Remark    *string  `json:"remark" validate:"omitempty,max=1024"`
	Author    *string  `json:"author" validate:"omitempty,max=256"`
	ISBN      *string  `json:"isbn" validate:"omitempty,max=20"`
	Price     *float64 `json:"price" validate:"omitempty,gte=0"`
	CoverURL  *string  `json:"cover_url" validate:"omitempty,max=2048"`
}

// Recorder receives catalog changes for the audit trail.
type Recorder interface {
	LogCatalog(userID uint, action string, bookID uint, name string)
}

type Service struct {
	books    *books.Repository
	recorder Recorder
}

// NewService creates a catalog service. recorder may be nil.
func NewService(repo *books.Repository, recorder Recorder) *Service {
	return &Service{books: repo, recorder: recorder}
}

// CreateBook adds a book with Copies copies, all on the shelf.
func (s *Service) CreateBook(ctx context.Context, actorID uint, in BookInput) (*entities.Book, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	book := &entities.Book{
		Name:      in.Name,
		Publisher: in.Publisher,
		Year:      in.Year,
		Remark:    in.Remark,
		Author:    in.Author,
		ISBN:      in.ISBN,
		Price:     in.Price,
		Copies:    in.Copies,
		Residue:   in.Copies,
		CoverURL:  in.CoverURL,
	}
	if err := s.books.Create(ctx, book); err != nil {
		return nil, err
	}

	s.record(actorID, "book_create", book)
	return book, nil
}

// UpdateBook applies patch to a live book.
func (s *Service) UpdateBook(ctx context.Context, actorID, id uint, patch BookPatch) (*entities.Book, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}

	book, err := s.books.UpdateDetails(ctx, id, books.Details{
		Name:      patch.Name,
		Publisher: patch.Publisher,
		Year:      patch.Year,
		Remark:    patch.Remark,
		Author:    patch.Author,
		ISBN:      patch.ISBN,
		Price:     patch.Price,
		CoverURL:  patch.CoverURL,
	})
	if err != nil {
		return nil, err
	}

	s.record(actorID, "book_update", book)
	return book, nil
}

// DeleteBook soft-deletes a book. Outstanding borrows of it can still be returned.
func (s *Service) DeleteBook(ctx context.Context, actorID, id uint) error {
	book, err := s.books.GetByID(ctx, id, domain.ExcludeDeleted)
	if err != nil {
		return err
	}
	if err := s.books.SoftDelete(ctx, id, time.Now()); err != nil {
		return err
	}

	s.record(actorID, "book_delete", book)
	return nil
}

// GetBook returns a live book.
func (s *Service) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	return s.books.GetByID(ctx, id, domain.ExcludeDeleted)
}

func (s *Service) record(actorID uint, action string, book *entities.Book) {
	if s.recorder != nil {
		s.recorder.LogCatalog(actorID, action, book.ID, book.Name)
	}
}
