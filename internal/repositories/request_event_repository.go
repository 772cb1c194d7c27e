package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crm-system/internal/entities"
)

type RequestEventRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, event *entities.RequestEvent) error
	FindByRequestID(ctx context.Context, requestID string) ([]entities.RequestEvent, error)
	DeleteByRequestIDInTx(ctx context.Context, tx pgx.Tx, requestID string) error
}

type RequestEventRepository struct {
	storage *pgxpool.Pool
}

func NewRequestEventRepository(storage *pgxpool.Pool) RequestEventRepositoryInterface {
	return &RequestEventRepository{storage: storage}
}

// CreateInTx appends an event; seq is assigned by the database.
func (r *RequestEventRepository) CreateInTx(ctx context.Context, tx pgx.Tx, event *entities.RequestEvent) error {
	var from *string
	if event.FromStatus != nil {
		s := string(*event.FromStatus)
		from = &s
	}

	query, args, err := psql.Insert("request_events").
		Columns("id", "request_id", "from_status", "to_status", "comment", "changed_by_id", "created_at").
		Values(event.ID, event.RequestID, from, string(event.ToStatus), event.Comment, event.ChangedByID, event.CreatedAt).
		Suffix("RETURNING seq").
		ToSql()
	if err != nil {
		return err
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&event.Seq); err != nil {
		return fmt.Errorf("insert request event: %w", err)
	}
	return nil
}

// FindByRequestID returns the full history in the order it happened.
func (r *RequestEventRepository) FindByRequestID(ctx context.Context, requestID string) ([]entities.RequestEvent, error) {
	query, args, err := psql.Select(
		"e.id", "e.seq", "e.request_id", "e.from_status", "e.to_status", "e.comment",
		"e.changed_by_id", "COALESCE(u.full_name, '')", "e.created_at",
	).
		From("request_events e").
		LeftJoin("users u ON u.id = e.changed_by_id").
		Where(sq.Eq{"e.request_id": requestID}).
		OrderBy("e.created_at ASC", "e.seq ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query request events: %w", err)
	}
	defer rows.Close()

	events := make([]entities.RequestEvent, 0)
	for rows.Next() {
		var e entities.RequestEvent
		if err := rows.Scan(&e.ID, &e.Seq, &e.RequestID, &e.FromStatus, &e.ToStatus, &e.Comment,
			&e.ChangedByID, &e.ChangedByName, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan request event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *RequestEventRepository) DeleteByRequestIDInTx(ctx context.Context, tx pgx.Tx, requestID string) error {
	query, args, err := psql.Delete("request_events").Where(sq.Eq{"request_id": requestID}).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete request events: %w", err)
	}
	return nil
}
