package authz

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-system/internal/entities"
	"crm-system/pkg/constants"
	apperrors "crm-system/pkg/errors"
)

func ptr(s string) *string { return &s }

func TestPolicyRequestRules(t *testing.T) {
	p := NewPolicy()
	req := &entities.Request{ID: "r1", CreatedByID: "creator", AssignedToID: ptr("assignee")}

	cases := []struct {
		name    string
		actor   Actor
		canView bool
		canDel  bool
	}{
		{"admin", Actor{ID: "x", Role: constants.RoleAdmin}, true, true},
		{"manager", Actor{ID: "x", Role: constants.RoleManager}, true, true},
		{"creator agent", Actor{ID: "creator", Role: constants.RoleAgent}, true, false},
		{"assignee agent", Actor{ID: "assignee", Role: constants.RoleAgent}, true, false},
		{"unrelated agent", Actor{ID: "other", Role: constants.RoleAgent}, false, false},
		{"unrelated viewer", Actor{ID: "other", Role: constants.RoleViewer}, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.canView, p.CanView(tc.actor, req))
			assert.Equal(t, tc.canView, p.CanMutate(tc.actor, req))
			assert.Equal(t, tc.canDel, p.CanDelete(tc.actor, req))
		})
	}
}

func TestPolicyClientRuleIgnoresAssignment(t *testing.T) {
	p := NewPolicy()
	client := &entities.Client{ID: "c1", CreatedByID: "creator"}

	assert.True(t, p.CanView(Actor{ID: "creator", Role: constants.RoleAgent}, client))
	assert.False(t, p.CanView(Actor{ID: "other", Role: constants.RoleAgent}, client))
}

func TestAuthorizeReturnsForbidden(t *testing.T) {
	err := NewPolicy().Authorize(Actor{ID: "other", Role: constants.RoleAgent}, ActionTransition, &entities.Request{CreatedByID: "creator"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestAggregatedScope(t *testing.T) {
	p := NewPolicy()

	assert.True(t, p.AggregatedScope(Actor{ID: "a", Role: constants.RoleAdmin}, []string{"x"}).All)
	assert.True(t, p.AggregatedScope(Actor{ID: "m", Role: constants.RoleManager}, nil).All)
	assert.True(t, p.AggregatedScope(Actor{ID: "m", Role: constants.RoleManager}, []string{"a1"}).All,
		"a team never narrows a manager")

	lead := p.AggregatedScope(Actor{ID: "l", Role: constants.RoleAgent}, []string{"a1", "l"})
	assert.False(t, lead.All)
	assert.Equal(t, []string{"l", "a1"}, lead.UserIDs)

	own := p.AggregatedScope(Actor{ID: "a2", Role: constants.RoleAgent}, nil)
	assert.Equal(t, []string{"a2"}, own.UserIDs)
}

func TestScopeRequestPredicate(t *testing.T) {
	assert.Nil(t, Scope{All: true}.RequestPredicate("r"))

	sql, args, err := sq.Select("1").From("requests r").
		Where(Scope{UserIDs: []string{"u1", "u2"}}.RequestPredicate("r")).
		PlaceholderFormat(sq.Dollar).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM requests r WHERE (r.created_by_id IN ($1,$2) OR r.assigned_to_id IN ($3,$4))", sql)
	assert.Equal(t, []interface{}{"u1", "u2", "u1", "u2"}, args)
}

func TestScopeClientPredicate(t *testing.T) {
	assert.Nil(t, Scope{All: true}.ClientPredicate("c"))

	sql, args, err := sq.Select("1").From("clients c").
		Where(Scope{UserIDs: []string{"m", "a1"}}.ClientPredicate("c")).
		PlaceholderFormat(sq.Dollar).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM clients c WHERE c.created_by_id IN ($1,$2)", sql)
	assert.Equal(t, []interface{}{"m", "a1"}, args)

	sql, _, err = sq.Select("1").From("clients").Where(Scope{}.ClientPredicate("")).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM clients WHERE 1 = 0", sql)
}
