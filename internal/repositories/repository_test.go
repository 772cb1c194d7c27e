package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-system/internal/authz"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/types"
)

const clientUUID = "6f1d2c3b-4a5e-4f60-8a7b-9c0d1e2f3a4b"

func TestRequestFiltersCoerceByColumnType(t *testing.T) {
	repo := &RequestRepository{}
	b, err := repo.applyListFilters(psql.Select("r.id").From("requests r"), types.Filter{
		Filters: map[string]string{"clientId": clientUUID, "archived": "false"},
	}, authz.Scope{All: true})
	require.NoError(t, err)

	sql, args, err := b.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "r.client_id = $")
	assert.Contains(t, sql, "r.archived = $")
	assert.ElementsMatch(t, []interface{}{clientUUID, false}, args)
}

func TestRequestFiltersRejectMalformedValues(t *testing.T) {
	repo := &RequestRepository{}
	cases := map[string]map[string]string{
		"text in uuid column":    {"clientId": "not-a-uuid"},
		"boolean in uuid column": {"assignedToId": "true"},
		"word in bool column":    {"archived": "yes"},
	}
	for name, filters := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := repo.applyListFilters(psql.Select("r.id").From("requests r"),
				types.Filter{Filters: filters}, authz.Scope{All: true})
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Equal(t, "VALIDATION_ERROR", apperrors.Kind(err))
		})
	}
}

func TestNullFilterMatchesMissingValue(t *testing.T) {
	b, err := applyFilters(psql.Select("id").From("users"), types.Filter{
		Filters: map[string]string{"assistantId": "null", "unknown": "x"},
	}, userFilterColumns)
	require.NoError(t, err)

	sql, args, err := b.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM users WHERE assistant_id IS NULL", sql)
	assert.Empty(t, args)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	sql, args, err := psql.Select("id").From("users").
		Where(searchPredicate(`50%_off\`, "full_name", "email")).ToSql()
	require.NoError(t, err)
	assert.Equal(t, `SELECT id FROM users WHERE (full_name ILIKE $1 ESCAPE '\' OR email ILIKE $2 ESCAPE '\')`, sql)
	assert.Equal(t, []interface{}{`%50\%\_off\\%`, `%50\%\_off\\%`}, args)
}
