package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"crm-system/internal/entities"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/types"
)

const userTable = "users"

var userColumns = []string{
	"id", "full_name", "email", "phone", "role", "password_hash", "is_active", "assistant_id", "created_at", "updated_at",
}

var userSortColumns = map[string]string{
	"fullName":  "full_name",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"role":      "role",
}

var userFilterColumns = map[string]filterColumn{
	"role":        {"role", textColumn},
	"isActive":    {"is_active", boolColumn},
	"assistantId": {"assistant_id", uuidColumn},
}

type UserRepositoryInterface interface {
	Create(ctx context.Context, user *entities.User) error
	Update(ctx context.Context, user *entities.User) error
	FindByID(ctx context.Context, id string) (*entities.User, error)
	FindByLogin(ctx context.Context, login string) (*entities.User, error)
	FindTeamMemberIDs(ctx context.Context, leadID string) ([]string, error)
	List(ctx context.Context, filter types.Filter) ([]entities.User, uint64, error)
}

type UserRepository struct {
	storage *pgxpool.Pool
}

func NewUserRepository(storage *pgxpool.Pool) UserRepositoryInterface {
	return &UserRepository{storage: storage}
}

func (r *UserRepository) Create(ctx context.Context, u *entities.User) error {
	query, args, err := psql.Insert(userTable).
		Columns(userColumns...).
		Values(u.ID, u.FullName, u.Email, u.Phone, string(u.Role), u.PasswordHash, u.IsActive, u.AssistantID, u.CreatedAt, u.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.storage.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflict("a user with this email or phone already exists")
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *entities.User) error {
	query, args, err := psql.Update(userTable).
		Set("full_name", u.FullName).
		Set("email", u.Email).
		Set("phone", u.Phone).
		Set("role", string(u.Role)).
		Set("password_hash", u.PasswordHash).
		Set("is_active", u.IsActive).
		Set("assistant_id", u.AssistantID).
		Set("updated_at", u.UpdatedAt).
		Where(sq.Eq{"id": u.ID}).
		ToSql()
	if err != nil {
		return err
	}
	err = execAffectingOne(ctx, r.storage, "user", u.ID, query, args...)
	if isUniqueViolation(err) {
		return apperrors.NewConflict("a user with this email or phone already exists")
	}
	return err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entities.User, error) {
	return r.findOneWhere(ctx, sq.Eq{"id": id}, id)
}

// FindByLogin matches either email (case-insensitive) or phone.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*entities.User, error) {
	return r.findOneWhere(ctx, sq.Or{sq.Expr("LOWER(email) = LOWER(?)", login), sq.Eq{"phone": login}}, login)
}

func (r *UserRepository) findOneWhere(ctx context.Context, where sq.Sqlizer, key string) (*entities.User, error) {
	query, args, err := psql.Select(userColumns...).From(userTable).Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	u, err := scanUser(r.storage.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "user", key)
	}
	return u, nil
}

// FindTeamMemberIDs returns the ids of users whose assistant_id is leadID.
func (r *UserRepository) FindTeamMemberIDs(ctx context.Context, leadID string) ([]string, error) {
	query, args, err := psql.Select("id").From(userTable).Where(sq.Eq{"assistant_id": leadID}).OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query team members: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *UserRepository) List(ctx context.Context, filter types.Filter) ([]entities.User, uint64, error) {
	apply := func(b sq.SelectBuilder) (sq.SelectBuilder, error) {
		b, err := applyFilters(b, filter, userFilterColumns)
		if err != nil {
			return b, err
		}
		if filter.Search != "" {
			b = b.Where(searchPredicate(filter.Search, "full_name", "email", "phone"))
		}
		return b, nil
	}

	countBuilder, err := apply(psql.Select("COUNT(*)").From(userTable))
	if err != nil {
		return nil, 0, err
	}
	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	listBuilder, err := apply(psql.Select(userColumns...).From(userTable))
	if err != nil {
		return nil, 0, err
	}
	query, args, err := listBuilder.
		OrderBy(orderBy(filter, userSortColumns, "full_name ASC"), "id").
		Limit(filter.Limit).
		Offset(filter.Offset).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]entities.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func scanUser(row rowScanner) (*entities.User, error) {
	var u entities.User
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.Phone, &u.Role, &u.PasswordHash, &u.IsActive,
		&u.AssistantID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
