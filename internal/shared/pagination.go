package shared

import "math"

// PageSize is the fixed number of records per page on detail listings.
const PageSize = 10

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	TotalPages int
	Total      int
}

// NewPagination computes pagination metadata for a 1-based page number.
func NewPagination(page, total int) Pagination {
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(PageSize)))
	return Pagination{Page: page, TotalPages: totalPages, Total: total}
}

// Offset returns the number of records to skip for the page.
func (p Pagination) Offset() int {
	offset := (p.Page - 1) * PageSize
	if offset < 0 {
		return 0
	}
	return offset
}
