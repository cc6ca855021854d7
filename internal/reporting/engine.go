// Package reporting provides read-only views over the catalog, accounts and
// borrow ledger. It takes no locks: each count and page reflects committed
// data, but separate counts in one call may come from different moments.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/database/history"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/domain"
	"github.com/mrlokans/librarian/internal/entities"
)

// Engine answers reporting queries.
type Engine struct {
	stores database.Stores
	now    func() time.Time
}

// NewEngine creates an engine reading through stores.
func NewEngine(stores database.Stores) *Engine {
	return &Engine{stores: stores, now: time.Now}
}

// Summary counts live users, live books and outstanding borrows. If any
// count fails the whole call fails.
func (e *Engine) Summary(ctx context.Context) (Summary, error) {
	var (
		s   Summary
		err error
	)
	if s.UserCount, err = e.stores.Users.Count(ctx, domain.ExcludeDeleted); err != nil {
		return Summary{}, err
	}
	if s.BookCount, err = e.stores.Books.Count(ctx, domain.ExcludeDeleted); err != nil {
		return Summary{}, err
	}
	if s.OutstandingBorrowCount, err = e.stores.History.CountOutstanding(ctx); err != nil {
		return Summary{}, err
	}
	if s.TotalBorrowCount, err = e.stores.History.CountAll(ctx); err != nil {
		return Summary{}, err
	}
	return s, nil
}

// UserSummary reports one user's borrowing statistics.
func (e *Engine) UserSummary(ctx context.Context, userID uint) (UserSummary, error) {
	if _, err := e.stores.Users.GetByID(ctx, userID, domain.IncludeDeleted); err != nil {
		return UserSummary{}, err
	}
	total, outstanding, err := e.stores.History.CountForUser(ctx, userID)
	if err != nil {
		return UserSummary{}, err
	}
	all, err := e.stores.History.CountAll(ctx)
	if err != nil {
		return UserSummary{}, err
	}

	s := UserSummary{Unreturned: outstanding, BorrowedNums: total}
	if all > 0 {
		s.RankingPercent = float64(total) / float64(all) * 100
	}
	return s, nil
}

// ListBooks returns one page of live books.
func (e *Engine) ListBooks(ctx context.Context, q BookQuery) (domain.Page[entities.Book], error) {
	if err := q.validate(); err != nil {
		return domain.Page[entities.Book]{}, err
	}

	items, total, err := e.stores.Books.List(ctx, books.ListQuery{
		Offset:      q.Offset(),
		Limit:       q.Size,
		FilterField: q.FilterField,
		FilterText:  q.FilterText,
		SortField:   q.SortField,
		SortDir:     q.SortDir,
		Visibility:  domain.ExcludeDeleted,
	})
	if err != nil {
		return domain.Page[entities.Book]{}, err
	}
	return domain.NewPage(items, total, q.PageRequest), nil
}

// ListUsers returns one page of live users, each with its outstanding borrow count.
func (e *Engine) ListUsers(ctx context.Context, q UserQuery) (domain.Page[UserReportRow], error) {
	if err := q.Validate(); err != nil {
		return domain.Page[UserReportRow]{}, err
	}

	accounts, total, err := e.stores.Users.List(ctx, users.ListQuery{
		Offset:      q.Offset(),
		Limit:       q.Size,
		EmailFilter: q.EmailFilter,
		Visibility:  domain.ExcludeDeleted,
	})
	if err != nil {
		return domain.Page[UserReportRow]{}, err
	}

	ids := make([]uint, 0, len(accounts))
	for _, u := range accounts {
		ids = append(ids, u.ID)
	}
	outstanding, err := e.stores.History.OutstandingByUser(ctx, ids)
	if err != nil {
		return domain.Page[UserReportRow]{}, err
	}

	rows := make([]UserReportRow, 0, len(accounts))
	for _, u := range accounts {
		rows = append(rows, UserReportRow{
			ID:               u.ID,
			Email:            u.Email,
			Role:             u.Role,
			OutstandingCount: outstanding[u.ID],
			CreatedAt:        u.CreatedAt,
		})
	}
	return domain.NewPage(rows, total, q.PageRequest), nil
}

// ListHistory returns one page of the joined ledger, newest first.
func (e *Engine) ListHistory(ctx context.Context, q HistoryQuery) (domain.Page[HistoryReportRow], error) {
	if err := q.Validate(); err != nil {
		return domain.Page[HistoryReportRow]{}, err
	}

	rows, total, err := e.stores.History.ListReport(ctx, history.ReportQuery{
		Offset:     q.Offset(),
		Limit:      q.Size,
		FilterType: q.FilterType,
		FilterText: q.FilterText,
	})
	if err != nil {
		return domain.Page[HistoryReportRow]{}, err
	}
	return domain.NewPage(rows, total, q.PageRequest), nil
}

// ListUserHistory returns one page of a user's own borrows, newest first,
// optionally filtered by book name. Keep is how long the copy has been or
// was kept.
func (e *Engine) ListUserHistory(ctx context.Context, userID uint, q UserHistoryQuery) (domain.Page[UserHistoryRow], error) {
	if err := q.Validate(); err != nil {
		return domain.Page[UserHistoryRow]{}, err
	}
	if userID == 0 {
		return domain.Page[UserHistoryRow]{}, domain.NewValidationError("user_id", "is required")
	}

	rows, total, err := e.stores.History.ListReport(ctx, history.ReportQuery{
		Offset:     q.Offset(),
		Limit:      q.Size,
		UserID:     userID,
		FilterType: "name",
		FilterText: q.NameFilter,
	})
	if err != nil {
		return domain.Page[UserHistoryRow]{}, err
	}

	now := e.now()
	items := make([]UserHistoryRow, 0, len(rows))
	for _, r := range rows {
		end := now
		if r.ReturnedAt != nil {
			end = *r.ReturnedAt
		}
		items = append(items, UserHistoryRow{
			BorrowRef:  r.BorrowRef,
			BookID:     r.BookID,
			BookName:   r.BookName,
			BookISBN:   r.BookISBN,
			BorrowedAt: r.BorrowedAt,
			IsBack:     r.IsBack,
			ReturnedAt: r.ReturnedAt,
			Keep:       FormatKeep(end.Sub(r.BorrowedAt)),
		})
	}
	return domain.NewPage(items, total, q.PageRequest), nil
}

// FormatKeep renders a loan duration as days, hours and minutes.
func FormatKeep(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}
