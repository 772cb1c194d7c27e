package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQueryDefaults(t *testing.T) {
	f := ParseQuery(url.Values{})

	assert.Equal(t, uint64(1), f.Page)
	assert.Equal(t, uint64(DefaultLimit), f.Limit)
	assert.Equal(t, uint64(0), f.Offset)
	assert.Equal(t, "updatedAt", f.SortBy)
	assert.Equal(t, "desc", f.SortOrder)
}

func TestParseQueryBoundsAndFilters(t *testing.T) {
	q, _ := url.ParseQuery("page=3&limit=1000&sort=title&filter[status]=SOLD&filter[type]=&search=+camry+")
	f := ParseQuery(q)

	assert.Equal(t, uint64(MaxLimit), f.Limit)
	assert.Equal(t, uint64(3), f.Page)
	assert.Equal(t, uint64(200), f.Offset)
	assert.Equal(t, "title", f.SortBy)
	assert.Equal(t, "asc", f.SortOrder)
	assert.Equal(t, "camry", f.Search)
	assert.Equal(t, map[string]string{"status": "SOLD"}, f.Filters)
}

func TestParseQueryRejectsNonPositivePage(t *testing.T) {
	q, _ := url.ParseQuery("page=0&limit=-5")
	f := ParseQuery(q)

	assert.Equal(t, uint64(1), f.Page)
	assert.Equal(t, uint64(DefaultLimit), f.Limit)
}

func TestParseBoundedInt(t *testing.T) {
	q, _ := url.ParseQuery("top=70&limit=abc")
	assert.Equal(t, 50, ParseBoundedInt(q, "top", 10, 50))
	assert.Equal(t, 20, ParseBoundedInt(q, "limit", 20, 100))
	assert.Equal(t, 5, ParseBoundedInt(q, "missing", 5, 100))
}
