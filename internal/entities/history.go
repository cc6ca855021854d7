package entities

import "time"

// History is one borrow of one copy. A record starts outstanding
// (IsBack=false) and can only move to returned.
type History struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	BorrowRef  string     `gorm:"column:borrow_id;uniqueIndex;size:64;not null" json:"borrow_id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	BookID     uint       `gorm:"index;not null" json:"book_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	IsBack     bool       `gorm:"index;not null;default:false" json:"is_back"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

func (History) TableName() string {
	return "histories"
}

func (h *History) IsOutstanding() bool {
	return !h.IsBack
}
