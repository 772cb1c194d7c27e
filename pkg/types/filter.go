package types

// Filter represents query parameters for filtering, sorting and pagination.
type Filter struct {
	Search    string            `json:"search,omitempty"`
	Filters   map[string]string `json:"filter,omitempty"`
	SortBy    string            `json:"sortBy"`
	SortOrder string            `json:"sortOrder"`
	Limit     uint64            `json:"limit"`
	Offset    uint64            `json:"offset"`
	Page      uint64            `json:"page"`
}

// http://localhost:8080/api/requests?search=camry&filter[status]=FOLLOW_UP&filter[type]=CASH&sort=-updatedAt&page=2&limit=20
