// Package circulation is the only writer of book residue and borrow records.
//
// Every command runs in one store transaction: the copy counter and the
// ledger change together or not at all. Availability is checked by a
// conditional update rather than a read followed by a write, so concurrent
// borrows of the last copy produce exactly one success.
package circulation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/domain"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/validation"
)

// TxRunner opens a transaction with repositories bound to it.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(database.Stores) error) error
}

// Recorder receives the outcome of each command.
type Recorder interface {
	LogBorrow(userID, bookID uint, reference string, err error)
	LogReturn(userID uint, reference string, override bool, err error)
	LogRestock(userID, bookID uint, delta int, err error)
}

// Coordinator executes circulation commands.
type Coordinator struct {
	tx       TxRunner
	recorder Recorder
	now      func() time.Time
	newRef   func(time.Time) string
}

// NewCoordinator creates a coordinator. recorder may be nil.
func NewCoordinator(tx TxRunner, recorder Recorder) *Coordinator {
	return &Coordinator{
		tx:       tx,
		recorder: recorder,
		now:      time.Now,
		newRef:   NewReference,
	}
}

// Borrow lends one copy and returns the new borrow reference.
//
// Errors: ErrValidation for zero ids, ErrNotFound for a missing or deleted
// user or book, ErrOutOfStock when no copy is on the shelf.
func (c *Coordinator) Borrow(ctx context.Context, cmd BorrowCommand) (string, error) {
	if err := validation.Struct(cmd); err != nil {
		return "", err
	}

	now := c.now()
	ref := c.newRef(now)

	err := c.tx.WithinTx(ctx, func(s database.Stores) error {
		if _, err := s.Users.GetByID(ctx, cmd.UserID, domain.ExcludeDeleted); err != nil {
			return err
		}
		if _, err := s.Books.GetByID(ctx, cmd.BookID, domain.ExcludeDeleted); err != nil {
			return err
		}
		if err := s.Books.TakeCopy(ctx, cmd.BookID); err != nil {
			return err
		}
		return s.History.Create(ctx, &entities.History{
			BorrowRef:  ref,
			UserID:     cmd.UserID,
			BookID:     cmd.BookID,
			BorrowedAt: now,
		})
	})
	if err != nil {
		c.logFailure("borrow", err)
		if c.recorder != nil {
			c.recorder.LogBorrow(cmd.UserID, cmd.BookID, "", err)
		}
		return "", err
	}

	if c.recorder != nil {
		c.recorder.LogBorrow(cmd.UserID, cmd.BookID, ref, nil)
	}
	return ref, nil
}

// Return closes an outstanding borrow and puts the copy back on the shelf.
//
// Checks run in order: ErrNotFound for an unknown reference, ErrForbidden
// when the caller does not own the borrow and has no override, ErrConflict
// when the borrow is already returned.
func (c *Coordinator) Return(ctx context.Context, cmd ReturnCommand) error {
	if err := validation.Struct(cmd); err != nil {
		return err
	}

	err := c.tx.WithinTx(ctx, func(s database.Stores) error {
		record, err := s.History.GetByReference(ctx, cmd.Reference, domain.ExcludeDeleted)
		if err != nil {
			return err
		}
		if record.UserID != cmd.UserID && !cmd.AdminOverride {
			return fmt.Errorf("borrow %s belongs to another user: %w", cmd.Reference, domain.ErrForbidden)
		}
		if record.IsBack {
			return fmt.Errorf("borrow %s already returned: %w", cmd.Reference, domain.ErrConflict)
		}
		if err := s.History.MarkReturned(ctx, record.ID, c.now()); err != nil {
			return err
		}
		return s.Books.ReleaseCopy(ctx, record.BookID)
	})
	if err != nil {
		c.logFailure("return", err)
	}
	if c.recorder != nil {
		c.recorder.LogReturn(cmd.UserID, cmd.Reference, cmd.AdminOverride, err)
	}
	return err
}

// Restock adds or withdraws owned copies. Withdrawing more copies than are
// on the shelf is ErrConflict; lent copies cannot be withdrawn.
func (c *Coordinator) Restock(ctx context.Context, cmd RestockCommand) error {
	if err := validation.Struct(cmd); err != nil {
		return err
	}

	err := c.tx.WithinTx(ctx, func(s database.Stores) error {
		if _, err := s.Books.GetByID(ctx, cmd.BookID, domain.ExcludeDeleted); err != nil {
			return err
		}
		return s.Books.AdjustStock(ctx, cmd.BookID, cmd.Delta)
	})
	if err != nil {
		c.logFailure("restock", err)
	}
	if c.recorder != nil {
		c.recorder.LogRestock(cmd.ActorID, cmd.BookID, cmd.Delta, err)
	}
	return err
}

// InventoryReport is the result of comparing copy counters with the ledger.
type InventoryReport struct {
	Checked    int                  `json:"checked"`
	Mismatches []books.InventoryRow `json:"mismatches"`
}

// Consistent reports whether every book matched its ledger.
func (r InventoryReport) Consistent() bool {
	return len(r.Mismatches) == 0
}

// CheckInventory verifies copies - residue == outstanding for every book.
// It reads inside a transaction so counters and ledger come from one snapshot.
func (c *Coordinator) CheckInventory(ctx context.Context) (InventoryReport, error) {
	var rows []books.InventoryRow
	err := c.tx.WithinTx(ctx, func(s database.Stores) error {
		var err error
		rows, err = s.Books.Inventory(ctx)
		return err
	})
	if err != nil {
		return InventoryReport{}, err
	}

	report := InventoryReport{Checked: len(rows), Mismatches: []books.InventoryRow{}}
	for _, row := range rows {
		if !row.Consistent() {
			log.Printf("[CIRCULATION] Inventory mismatch for book %d (%s): copies=%d residue=%d outstanding=%d",
				row.BookID, row.Name, row.Copies, row.Residue, row.Outstanding)
			report.Mismatches = append(report.Mismatches, row)
		}
	}
	return report, nil
}

// logFailure logs store failures. Expected outcomes such as out-of-stock
// are left to the caller.
func (c *Coordinator) logFailure(op string, err error) {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		log.Printf("[CIRCULATION] %s failed: %v", op, err)
	}
}
