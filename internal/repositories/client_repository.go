package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crm-system/internal/authz"
	"crm-system/internal/entities"
	"crm-system/pkg/types"
)

const clientTable = "clients"

var clientColumns = []string{
	"c.id", "c.full_name", "c.phone", "c.secondary_phone", "c.city", "c.address", "c.notes",
	"c.additional_data", "c.commitments", "c.created_by_id", "c.created_at", "c.updated_at",
}

var clientSortColumns = map[string]string{
	"updatedAt": "c.updated_at",
	"createdAt": "c.created_at",
	"fullName":  "c.full_name",
	"city":      "c.city",
}

var clientFilterColumns = map[string]filterColumn{
	"city":        {"c.city", textColumn},
	"createdById": {"c.created_by_id", uuidColumn},
}

type ClientRepositoryInterface interface {
	Create(ctx context.Context, client *entities.Client) error
	FindByID(ctx context.Context, id string) (*entities.Client, error)
	FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id string) (*entities.Client, error)
	Update(ctx context.Context, client *entities.Client) error
	TouchInTx(ctx context.Context, tx pgx.Tx, id string, at time.Time) error
	DeleteInTx(ctx context.Context, tx pgx.Tx, id string) error
	List(ctx context.Context, filter types.Filter, scope authz.Scope) ([]entities.Client, uint64, error)
}

type ClientRepository struct {
	storage *pgxpool.Pool
}

func NewClientRepository(storage *pgxpool.Pool) ClientRepositoryInterface {
	return &ClientRepository{storage: storage}
}

func (r *ClientRepository) Create(ctx context.Context, c *entities.Client) error {
	additional, commitments, err := encodeClientJSON(c)
	if err != nil {
		return err
	}
	query, args, err := psql.Insert(clientTable).
		Columns("id", "full_name", "phone", "secondary_phone", "city", "address", "notes",
			"additional_data", "commitments", "created_by_id", "created_at", "updated_at").
		Values(c.ID, c.FullName, c.Phone, c.SecondaryPhone, c.City, c.Address, c.Notes,
			additional, commitments, c.CreatedByID, c.CreatedAt, c.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.storage.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (r *ClientRepository) FindByID(ctx context.Context, id string) (*entities.Client, error) {
	return r.findOne(ctx, r.storage, id, false)
}

func (r *ClientRepository) FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id string) (*entities.Client, error) {
	return r.findOne(ctx, tx, id, true)
}

func (r *ClientRepository) findOne(ctx context.Context, q querier, id string, forUpdate bool) (*entities.Client, error) {
	b := psql.Select(clientColumns...).From("clients c").Where(sq.Eq{"c.id": id})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	client, err := scanClient(q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "client", id)
	}
	return client, nil
}

func (r *ClientRepository) Update(ctx context.Context, c *entities.Client) error {
	additional, commitments, err := encodeClientJSON(c)
	if err != nil {
		return err
	}
	query, args, err := psql.Update(clientTable).
		Set("full_name", c.FullName).
		Set("phone", c.Phone).
		Set("secondary_phone", c.SecondaryPhone).
		Set("city", c.City).
		Set("address", c.Address).
		Set("notes", c.Notes).
		Set("additional_data", additional).
		Set("commitments", commitments).
		Set("updated_at", c.UpdatedAt).
		Where(sq.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return err
	}
	return execAffectingOne(ctx, r.storage, "client", c.ID, query, args...)
}

// TouchInTx bumps updated_at so the client floats up in recency-sorted views.
func (r *ClientRepository) TouchInTx(ctx context.Context, tx pgx.Tx, id string, at time.Time) error {
	query, args, err := psql.Update(clientTable).Set("updated_at", at).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	return execAffectingOne(ctx, tx, "client", id, query, args...)
}

func (r *ClientRepository) DeleteInTx(ctx context.Context, tx pgx.Tx, id string) error {
	query, args, err := psql.Delete(clientTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	return execAffectingOne(ctx, tx, "client", id, query, args...)
}

func (r *ClientRepository) List(ctx context.Context, filter types.Filter, scope authz.Scope) ([]entities.Client, uint64, error) {
	apply := func(b sq.SelectBuilder) (sq.SelectBuilder, error) {
		b = applySecurity(b, scope.ClientPredicate("c"))
		b, err := applyFilters(b, filter, clientFilterColumns)
		if err != nil {
			return b, err
		}
		if filter.Search != "" {
			b = b.Where(searchPredicate(filter.Search, "c.full_name", "c.phone", "c.secondary_phone", "c.city"))
		}
		return b, nil
	}

	countBuilder, err := apply(psql.Select("COUNT(*)").From("clients c"))
	if err != nil {
		return nil, 0, err
	}
	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}
	if total == 0 {
		return []entities.Client{}, 0, nil
	}

	listBuilder, err := apply(psql.Select(clientColumns...).From("clients c"))
	if err != nil {
		return nil, 0, err
	}
	query, args, err := listBuilder.
		OrderBy(orderBy(filter, clientSortColumns, "c.updated_at DESC"), "c.id").
		Limit(filter.Limit).
		Offset(filter.Offset).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	clients := make([]entities.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	return clients, total, rows.Err()
}

func scanClient(row rowScanner) (*entities.Client, error) {
	var c entities.Client
	err := row.Scan(&c.ID, &c.FullName, &c.Phone, &c.SecondaryPhone, &c.City, &c.Address, &c.Notes,
		&c.AdditionalData, &c.Commitments, &c.CreatedByID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func encodeClientJSON(c *entities.Client) ([]byte, []byte, error) {
	additional, err := json.Marshal(nonNilMap(c.AdditionalData))
	if err != nil {
		return nil, nil, fmt.Errorf("encode additional data: %w", err)
	}
	commitments := c.Commitments
	if commitments == nil {
		commitments = []entities.Commitment{}
	}
	rawCommitments, err := json.Marshal(commitments)
	if err != nil {
		return nil, nil, fmt.Errorf("encode commitments: %w", err)
	}
	return additional, rawCommitments, nil
}
