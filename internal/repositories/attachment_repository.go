package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crm-system/internal/entities"
)

var attachmentColumns = []string{
	"a.id", "a.request_id", "a.client_id", "a.file_name", "a.storage_key", "a.mime_type",
	"a.size_bytes", "a.uploaded_by_id", "a.created_at",
}

type AttachmentRepositoryInterface interface {
	Create(ctx context.Context, attachment *entities.Attachment) error
	FindByID(ctx context.Context, id string) (*entities.Attachment, error)
	ListByOwner(ctx context.Context, kind entities.OwnerKind, ownerID string) ([]entities.Attachment, error)
	Delete(ctx context.Context, id string) error
	StorageKeysByRequestIDInTx(ctx context.Context, tx pgx.Tx, requestID string) ([]string, error)
}

type AttachmentRepository struct {
	storage *pgxpool.Pool
}

func NewAttachmentRepository(storage *pgxpool.Pool) AttachmentRepositoryInterface {
	return &AttachmentRepository{storage: storage}
}

func (r *AttachmentRepository) Create(ctx context.Context, a *entities.Attachment) error {
	query, args, err := psql.Insert("attachments").
		Columns("id", "request_id", "client_id", "file_name", "storage_key", "mime_type", "size_bytes", "uploaded_by_id", "created_at").
		Values(a.ID, a.RequestID, a.ClientID, a.FileName, a.StorageKey, a.MimeType, a.SizeBytes, a.UploadedByID, a.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.storage.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (r *AttachmentRepository) FindByID(ctx context.Context, id string) (*entities.Attachment, error) {
	query, args, err := psql.Select(attachmentColumns...).From("attachments a").Where(sq.Eq{"a.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	a, err := scanAttachment(r.storage.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "attachment", id)
	}
	return a, nil
}

func (r *AttachmentRepository) ListByOwner(ctx context.Context, kind entities.OwnerKind, ownerID string) ([]entities.Attachment, error) {
	query, args, err := psql.Select(attachmentColumns...).
		From("attachments a").
		Where(sq.Eq{ownerColumn("a", kind): ownerID}).
		OrderBy("a.created_at DESC", "a.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	attachments := make([]entities.Attachment, 0)
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, *a)
	}
	return attachments, rows.Err()
}

func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("attachments").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	return execAffectingOne(ctx, r.storage, "attachment", id, query, args...)
}

// StorageKeysByRequestIDInTx lists blob keys that a request cascade-delete will orphan.
func (r *AttachmentRepository) StorageKeysByRequestIDInTx(ctx context.Context, tx pgx.Tx, requestID string) ([]string, error) {
	query, args, err := psql.Select("storage_key").From("attachments").Where(sq.Eq{"request_id": requestID}).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attachment keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func scanAttachment(row rowScanner) (*entities.Attachment, error) {
	var a entities.Attachment
	err := row.Scan(&a.ID, &a.RequestID, &a.ClientID, &a.FileName, &a.StorageKey, &a.MimeType,
		&a.SizeBytes, &a.UploadedByID, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
