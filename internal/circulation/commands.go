package circulation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BorrowCommand asks for one copy of BookID to be lent to UserID.
type BorrowCommand struct {
	UserID uint `json:"user_id" validate:"required"`
	BookID uint `json:"book_id" validate:"required"`
}

// ReturnCommand closes the borrow identified by Reference. UserID is the
// caller; it must own the borrow unless AdminOverride is set.
type ReturnCommand struct {
	Reference     string `json:"borrow_reference" validate:"required,max=64"`
	UserID        uint   `json:"user_id" validate:"required"`
	AdminOverride bool   `json:"-"`
}

// RestockCommand changes the number of owned copies of BookID by Delta.
// ActorID is recorded in the audit trail.
type RestockCommand struct {
	BookID  uint `json:"book_id" validate:"required"`
	Delta   int  `json:"delta" validate:"ne=0"`
	ActorID uint `json:"-"`
}

// NewReference returns a borrow reference: the borrow date followed by a
// random UUID, e.g. 20261019-1b4e28ba-2fa1-11d2-883f-0016d3cca427.
func NewReference(at time.Time) string {
	return fmt.Sprintf("%s-%s", at.UTC().Format("20060102"), uuid.NewString())
}
