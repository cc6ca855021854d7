// Package dbutil holds helpers shared by the store sub-packages: mapping
// gorm errors onto the domain taxonomy, soft-delete scoping and LIKE escaping.
package dbutil

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/domain"
)

// MapError converts gorm errors to domain errors.
// Record-not-found becomes ErrNotFound, unique violations become ErrConflict,
// anything else (including context cancellation) becomes ErrStoreUnavailable
// with the cause kept in the chain.
func MapError(err error, entity string, id any) error {
	if err == nil {
		return nil
	}

	// Already classified by a nested call.
	if domain.KindOf(err) != domain.KindInternal {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", entity, id, domain.ErrNotFound)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s %v: %w", entity, id, domain.ErrConflict)
	}
	return fmt.Errorf("%s %v: %w: %w", entity, id, domain.ErrStoreUnavailable, err)
}

// Visible restricts a query on table to rows allowed by vis.
func Visible(table string, vis domain.Visibility) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if vis == domain.IncludeDeleted {
			return db
		}
		return db.Where(table + ".deleted_at IS NULL")
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern returns a lower-cased LIKE pattern matching text anywhere,
// with LIKE wildcards in text escaped. Use with "LOWER(col) LIKE ? ESCAPE '\'".
func ContainsPattern(text string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
}

// ContainsClause builds the case-insensitive substring condition for column.
func ContainsClause(column string) string {
	return "LOWER(" + column + `) LIKE ? ESCAPE '\'`
}
