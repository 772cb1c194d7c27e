package utils

import (
	"net/url"
	"strconv"
	"strings"

	"crm-system/pkg/types"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ParseQuery reads ?search=&filter[key]=&sort=-field&page=&limit= into a Filter.
// page is clamped to >= 1 and limit to 1..MaxLimit.
func ParseQuery(query url.Values) types.Filter {
	params := types.Filter{
		Filters:   make(map[string]string),
		Limit:     DefaultLimit,
		Page:      1,
		SortBy:    "updatedAt",
		SortOrder: "desc",
	}

	for key, values := range query {
		if strings.HasPrefix(key, "filter[") && strings.HasSuffix(key, "]") && len(values) > 0 {
			filterKey := key[7 : len(key)-1]
			if v := strings.TrimSpace(values[0]); v != "" {
				params.Filters[filterKey] = v
			}
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.ParseUint(limitStr, 10, 64); err == nil && l > 0 {
			params.Limit = l
		}
	}
	if params.Limit > MaxLimit {
		params.Limit = MaxLimit
	}

	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.ParseUint(pageStr, 10, 64); err == nil && p > 0 {
			params.Page = p
		}
	}
	params.Offset = (params.Page - 1) * params.Limit

	params.Search = strings.TrimSpace(query.Get("search"))

	if sort := query.Get("sort"); sort != "" {
		if strings.HasPrefix(sort, "-") {
			params.SortOrder = "desc"
			params.SortBy = sort[1:]
		} else {
			params.SortOrder = "asc"
			params.SortBy = sort
		}
	}
	if order := strings.ToLower(query.Get("order")); order == "asc" || order == "desc" {
		params.SortOrder = order
	}
	return params
}

// ParseBoundedInt returns the query value clamped to [1, max], or def when absent or invalid.
func ParseBoundedInt(query url.Values, key string, def, max int) int {
	v, err := strconv.Atoi(query.Get(key))
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
