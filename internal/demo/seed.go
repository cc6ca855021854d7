package demo

import (
	"context"
	"fmt"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/catalog"
	"github.com/mrlokans/librarian/internal/circulation"
	"github.com/mrlokans/librarian/internal/entities"
)

// Password is shared by every seeded account.
const Password = "demo-library-password"

// AdminEmail is the seeded administrator.
const AdminEmail = "admin@example.com"

// Library bundles the services the seed goes through, so the demo data obeys
// the same rules as real traffic.
type Library struct {
	Accounts    *auth.Service
	Catalog     *catalog.Service
	Circulation *circulation.Coordinator
}

// SeedResult counts what Seed created.
type SeedResult struct {
	Books   int
	Readers int
	Borrows int
	Returns int
}

type demoLoan struct {
	reader   int
	book     int
	returned bool
}

var demoReaders = []string{
	"ada@example.com",
	"grace@example.com",
	"linus@example.com",
}

// Public domain titles.
var demoBooks = []catalog.BookInput{
	{Name: "Meditations", Author: "Marcus Aurelius", Publisher: "Penguin Classics", Year: 2006, ISBN: "9780140449334", Price: 12.5, Copies: 3, Remark: "Stoic philosophy"},
	{Name: "Letters from a Stoic", Author: "Seneca", Publisher: "Penguin Classics", Year: 1969, ISBN: "9780140442106", Price: 11, Copies: 2},
	{Name: "On the Origin of Species", Author: "Charles Darwin", Publisher: "John Murray", Year: 1859, ISBN: "9780451529060", Price: 9.95, Copies: 1},
	{Name: "Pride and Prejudice", Author: "Jane Austen", Publisher: "T. Egerton", Year: 1813, ISBN: "9780141439518", Price: 8.99, Copies: 4},
	{Name: "War and Peace", Author: "Leo Tolstoy", Publisher: "The Russian Messenger", Year: 1869, ISBN: "9781400079988", Price: 20, Copies: 2},
	{Name: "Crime and Punishment", Author: "Fyodor Dostoevsky", Publisher: "The Russian Messenger", Year: 1866, ISBN: "9780143058144", Price: 14, Copies: 2},
	{Name: "The Republic", Author: "Plato", Publisher: "Penguin Classics", Year: 2007, ISBN: "9780140455113", Price: 13, Copies: 1},
	{Name: "The Art of War", Author: "Sun Tzu", Publisher: "Shambhala", Year: 2005, ISBN: "9781590302255", Price: 7.5, Copies: 3},
	{Name: "Frankenstein", Author: "Mary Shelley", Publisher: "Lackington", Year: 1818, ISBN: "9780486282114", Price: 4.5, Copies: 2},
	{Name: "The Picture of Dorian Gray", Author: "Oscar Wilde", Publisher: "Ward, Lock & Co", Year: 1890, ISBN: "9780141439570", Price: 8, Copies: 0, Remark: "Awaiting restock"},
}

var demoLoans = []demoLoan{
	{reader: 0, book: 0},
	{reader: 0, book: 3, returned: true},
	{reader: 1, book: 2},
	{reader: 1, book: 4, returned: true},
	{reader: 2, book: 0},
	{reader: 2, book: 7},
}

// Seed creates an administrator, a handful of readers, the demo catalog and
// some open and closed loans. It expects an empty database.
func Seed(ctx context.Context, lib Library) (SeedResult, error) {
	var result SeedResult

	admin, err := lib.Accounts.CreateUser(ctx, AdminEmail, Password, entities.UserRoleAdmin)
	if err != nil {
		return result, fmt.Errorf("create admin: %w", err)
	}

	readers := make([]uint, 0, len(demoReaders))
	for _, email := range demoReaders {
		user, err := lib.Accounts.Register(ctx, email, Password)
		if err != nil {
			return result, fmt.Errorf("create reader %s: %w", email, err)
		}
		readers = append(readers, user.ID)
		result.Readers++
	}

	bookIDs := make([]uint, 0, len(demoBooks))
	for _, in := range demoBooks {
		book, err := lib.Catalog.CreateBook(ctx, admin.ID, in)
		if err != nil {
			return result, fmt.Errorf("create book %s: %w", in.Name, err)
		}
		bookIDs = append(bookIDs, book.ID)
		result.Books++
	}

	for _, loan := range demoLoans {
		userID := readers[loan.reader]
		ref, err := lib.Circulation.Borrow(ctx, circulation.BorrowCommand{UserID: userID, BookID: bookIDs[loan.book]})
		if err != nil {
			return result, fmt.Errorf("borrow %s: %w", demoBooks[loan.book].Name, err)
		}
		result.Borrows++

		if loan.returned {
			if err := lib.Circulation.Return(ctx, circulation.ReturnCommand{Reference: ref, UserID: userID}); err != nil {
				return result, fmt.Errorf("return %s: %w", ref, err)
			}
			result.Returns++
		}
	}

	return result, nil
}
