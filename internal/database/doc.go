// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, transactions
//	├── dbutil/          # Error mapping, soft-delete scopes, LIKE escaping
//	├── books/           # Catalog store: books and copy counters
//	├── users/           # Account store
//	├── history/         # Borrow ledger and its joined report projection
//	└── audit/           # Audit trail
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type bound to a *gorm.DB. Bound to
// the pool they serve reads; bound to a transaction they take part in it:
//
//	db, err := database.NewDatabase(cfg.Database)
//
//	book, err := db.Stores().Books.GetByID(ctx, 123, domain.ExcludeDeleted)
//
//	err = db.WithinTx(ctx, func(s database.Stores) error {
//		if err := s.Books.TakeCopy(ctx, 123); err != nil {
//			return err
//		}
//		return s.History.Create(ctx, record)
//	})
//
// # Soft Delete
//
// Books, users and borrow records carry an explicit nullable deleted_at
// column. gorm's implicit soft-delete is not used; every read takes a
// domain.Visibility so the caller decides whether deleted rows take part.
//
// # Errors
//
// Repositories return errors from the domain taxonomy only: ErrNotFound,
// ErrConflict, ErrOutOfStock, ErrValidation and ErrStoreUnavailable.
package database
