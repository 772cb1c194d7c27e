package repositories

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/types"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func applySecurity(b sq.SelectBuilder, securityCondition sq.Sqlizer) sq.SelectBuilder {
	if securityCondition != nil {
		return b.Where(securityCondition)
	}
	return b
}

// notFound maps pgx.ErrNoRows to a NotFound error and wraps anything else.
func notFound(err error, entity, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("%s %s not found", entity, id)
	}
	return fmt.Errorf("find %s: %w", entity, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// orderBy resolves the filter's sort onto a whitelisted column.
func orderBy(f types.Filter, allowed map[string]string, fallback string) string {
	column, ok := allowed[f.SortBy]
	if !ok {
		return fallback
	}
	direction := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		direction = "ASC"
	}
	return column + " " + direction
}

type columnKind int

const (
	textColumn columnKind = iota
	uuidColumn
	boolColumn
)

// filterColumn is a whitelisted filter target and the type its value must parse as.
type filterColumn struct {
	name string
	kind columnKind
}

// applyFilters adds equality predicates for whitelisted filter keys. A value
// that does not fit its column is a validation error, never a query error.
func applyFilters(b sq.SelectBuilder, f types.Filter, allowed map[string]filterColumn) (sq.SelectBuilder, error) {
	invalid := map[string]string{}
	for key, value := range f.Filters {
		column, ok := allowed[key]
		if !ok {
			continue
		}
		if value == "null" {
			b = b.Where(sq.Eq{column.name: nil})
			continue
		}
		switch column.kind {
		case boolColumn:
			if value != "true" && value != "false" {
				invalid["filter["+key+"]"] = "must be true, false or null"
				continue
			}
			b = b.Where(sq.Eq{column.name: value == "true"})
		case uuidColumn:
			id, err := uuid.Parse(value)
			if err != nil {
				invalid["filter["+key+"]"] = "must be a UUID or null"
				continue
			}
			b = b.Where(sq.Eq{column.name: id.String()})
		default:
			b = b.Where(sq.Eq{column.name: value})
		}
	}
	if len(invalid) > 0 {
		return b, apperrors.NewValidationError("invalid filter value", invalid)
	}
	return b, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchPredicate matches search as a literal substring of any column.
func searchPredicate(search string, columns ...string) sq.Sqlizer {
	pattern := "%" + likeEscaper.Replace(search) + "%"
	or := make(sq.Or, 0, len(columns))
	for _, c := range columns {
		or = append(or, sq.Expr(c+` ILIKE ? ESCAPE '\'`, pattern))
	}
	return or
}
