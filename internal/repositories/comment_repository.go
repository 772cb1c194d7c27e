package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crm-system/internal/entities"
)

type CommentRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, comment *entities.Comment) error
	ListByOwner(ctx context.Context, kind entities.OwnerKind, ownerID string) ([]entities.Comment, error)
}

type CommentRepository struct {
	storage *pgxpool.Pool
}

func NewCommentRepository(storage *pgxpool.Pool) CommentRepositoryInterface {
	return &CommentRepository{storage: storage}
}

func (r *CommentRepository) CreateInTx(ctx context.Context, tx pgx.Tx, c *entities.Comment) error {
	query, args, err := psql.Insert("comments").
		Columns("id", "request_id", "client_id", "author_id", "body", "created_at").
		Values(c.ID, c.RequestID, c.ClientID, c.AuthorID, c.Body, c.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *CommentRepository) ListByOwner(ctx context.Context, kind entities.OwnerKind, ownerID string) ([]entities.Comment, error) {
	query, args, err := psql.Select("cm.id", "cm.request_id", "cm.client_id", "cm.author_id",
		"COALESCE(u.full_name, '')", "cm.body", "cm.created_at").
		From("comments cm").
		LeftJoin("users u ON u.id = cm.author_id").
		Where(sq.Eq{ownerColumn("cm", kind): ownerID}).
		OrderBy("cm.created_at ASC", "cm.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]entities.Comment, 0)
	for rows.Next() {
		var c entities.Comment
		if err := rows.Scan(&c.ID, &c.RequestID, &c.ClientID, &c.AuthorID, &c.AuthorName, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func ownerColumn(alias string, kind entities.OwnerKind) string {
	if kind == entities.OwnerClient {
		return alias + ".client_id"
	}
	return alias + ".request_id"
}
