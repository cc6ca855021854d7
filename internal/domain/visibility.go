package domain

// Visibility selects whether soft-deleted rows take part in a query.
// Every store read names one explicitly.
type Visibility int

const (
	ExcludeDeleted Visibility = iota
	IncludeDeleted
)

// SortDirection orders a listing.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

func (d SortDirection) IsValid() bool {
	return d == SortAsc || d == SortDesc
}
