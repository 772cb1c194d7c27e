package types

// Pagination represents pagination metadata.
type Pagination struct {
	TotalCount uint64 `json:"totalCount"`
	Page       uint64 `json:"page"`
	Limit      uint64 `json:"limit"`
	TotalPages uint64 `json:"totalPages"`
}

func NewPagination(total, page, limit uint64) Pagination {
	var pages uint64
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{TotalCount: total, Page: page, Limit: limit, TotalPages: pages}
}
