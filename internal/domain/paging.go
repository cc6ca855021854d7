package domain

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest is a 1-based page selector.
type PageRequest struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// Validate rejects pages below 1 and sizes outside [1, MaxPageSize].
func (p PageRequest) Validate() error {
	var errs []FieldError
	if p.Page < 1 {
		errs = append(errs, FieldError{Field: "page", Message: "must be at least 1"})
	}
	if p.Size < 1 || p.Size > MaxPageSize {
		errs = append(errs, FieldError{Field: "size", Message: "must be between 1 and 100"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Size
}

// Page is one slice of a filtered, ordered result set.
type Page[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	PageCount  int   `json:"page_count"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
}

// NewPage builds a Page. Items is never nil so it serializes as [].
func NewPage[T any](items []T, total int64, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		TotalCount: total,
		PageCount:  PageCount(total, req.Size),
		Page:       req.Page,
		Size:       req.Size,
	}
}

// PageCount returns ceil(total/size).
func PageCount(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
