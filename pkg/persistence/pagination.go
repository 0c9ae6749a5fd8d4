package persistence

// DefaultLimit and MaxLimit bound page sizes across list endpoints.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListResult is one page of records plus the pagination envelope the
// HTTP layer returns verbatim.
type ListResult[T any] struct {
	Items      []*T       `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Pagination describes the position of a page inside the full result set.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NormalizePage clamps page and limit to sane bounds.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}

	if limit < 1 {
		limit = DefaultLimit
	}

	if limit > MaxLimit {
		limit = MaxLimit
	}

	return page, limit
}

// NewPagination computes the envelope for a page of total records.
func NewPagination(page, limit, total int) Pagination {
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}
}
