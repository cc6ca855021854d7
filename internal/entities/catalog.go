package entities

import "time"

// Book is a catalog title. Residue is the number of copies on the shelf,
// Copies the number the library owns. Copies - Residue equals the number of
// outstanding borrows for the book.
type Book struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"index;size:512;not null" json:"name"`
	Publisher string     `gorm:"size:256" json:"publisher"`
	Year      int        `json:"year"`
	Remark    string     `gorm:"size:1024" json:"remark"`
	Author    string     `gorm:"index;size:256" json:"author"`
	ISBN      string     `gorm:"index;size:20" json:"isbn"`
	Price     float64    `json:"price"`
	Residue   int        `gorm:"not null;default:0" json:"residue"`
	Copies    int        `gorm:"not null;default:0" json:"copies"`
	CoverURL  string     `gorm:"size:2048" json:"cover_url,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

func (Book) TableName() string {
	return "books"
}

// IsDeleted reports whether the book has been withdrawn from the catalog.
func (b *Book) IsDeleted() bool {
	return b.DeletedAt != nil
}
