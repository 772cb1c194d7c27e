package authz

import (
	sq "github.com/Masterminds/squirrel"
)

// Scope is a visibility filter. All means unrestricted; otherwise rows must
// be created by (or, for requests, assigned to) one of UserIDs.
type Scope struct {
	All     bool
	UserIDs []string
}

// RequestPredicate returns nil when the scope is unrestricted.
func (s Scope) RequestPredicate(alias string) sq.Sqlizer {
	if s.All {
		return nil
	}
	if len(s.UserIDs) == 0 {
		return sq.Expr("1 = 0")
	}
	return sq.Or{
		sq.Eq{column(alias, "created_by_id"): s.UserIDs},
		sq.Eq{column(alias, "assigned_to_id"): s.UserIDs},
	}
}

func (s Scope) ClientPredicate(alias string) sq.Sqlizer {
	if s.All {
		return nil
	}
	if len(s.UserIDs) == 0 {
		return sq.Expr("1 = 0")
	}
	return sq.Eq{column(alias, "created_by_id"): s.UserIDs}
}

func column(alias, name string) string {
	if alias == "" {
		return name
	}
	return alias + "." + name
}
