package reporting

import (
	"errors"
	"time"

	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/database/history"
	"github.com/mrlokans/librarian/internal/domain"
	"github.com/mrlokans/librarian/internal/entities"
)

// BookQuery selects a page of the catalog. FilterText is ignored when empty.
type BookQuery struct {
	domain.PageRequest
	FilterField string
	FilterText  string
	SortField   string
	SortDir     domain.SortDirection
}

func (q BookQuery) validate() error {
	var errs []domain.FieldError
	if err := q.PageRequest.Validate(); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			errs = append(errs, verr.Errors...)
		}
	}
	if q.FilterText != "" {
		if _, ok := books.FilterColumns[q.FilterField]; !ok {
			errs = append(errs, domain.FieldError{Field: "search_by", Message: "must be one of name author publisher isbn remark"})
		}
	}
	if q.SortField != "" {
		if _, ok := books.SortColumns[q.SortField]; !ok {
			errs = append(errs, domain.FieldError{Field: "search_sort", Message: "unsupported sort field"})
		}
	}
	if q.SortDir != "" && !q.SortDir.IsValid() {
		errs = append(errs, domain.FieldError{Field: "sort_dir", Message: "must be asc or desc"})
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// UserQuery selects a page of accounts.
type UserQuery struct {
	domain.PageRequest
	EmailFilter string
}

// HistoryQuery selects a page of the joined ledger. Unsupported FilterType
// values apply no filter.
type HistoryQuery struct {
	domain.PageRequest
	FilterType string
	FilterText string
}

// UserHistoryQuery selects a page of one user's borrows.
type UserHistoryQuery struct {
	domain.PageRequest
	NameFilter string
}

// Summary holds the headline counts of the library.
type Summary struct {
	UserCount              int64 `json:"user_count"`
	BookCount              int64 `json:"book_count"`
	OutstandingBorrowCount int64 `json:"outstanding_borrow_count"`
	TotalBorrowCount       int64 `json:"total_borrow_count"`
}

// UserSummary holds one user's borrowing statistics. RankingPercent is the
// user's share of all borrows ever made.
type UserSummary struct {
	Unreturned     int64   `json:"unreturned"`
	BorrowedNums   int64   `json:"borrowed_nums"`
	RankingPercent float64 `json:"ranking_percent"`
}

// UserReportRow is an account as shown in listings. It has no credential field.
type UserReportRow struct {
	ID               uint              `json:"id"`
	Email            string            `json:"email"`
	Role             entities.UserRole `json:"role"`
	OutstandingCount int64             `json:"borrowed_nums"`
	CreatedAt        time.Time         `json:"created_at"`
}

// HistoryReportRow is a borrow joined with its user's email and book's name and isbn.
type HistoryReportRow = history.ReportRow

// UserHistoryRow is a borrow as shown to its owner.
type UserHistoryRow struct {
	BorrowRef  string     `json:"borrow_id"`
	BookID     uint       `json:"book_id"`
	BookName   string     `json:"name"`
	BookISBN   string     `json:"isbn"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	IsBack     bool       `json:"is_back"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Keep       string     `json:"keep"`
}
