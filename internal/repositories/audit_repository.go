package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"crm-system/internal/entities"
	"crm-system/pkg/types"
)

var auditColumns = []string{"id", "actor_id", "action_type", "target_type", "target_id", "details", "created_at"}

var auditFilterColumns = map[string]filterColumn{
	"targetType": {"target_type", textColumn},
	"targetId":   {"target_id", textColumn},
	"actorId":    {"actor_id", uuidColumn},
	"actionType": {"action_type", textColumn},
}

type AuditRepositoryInterface interface {
	Create(ctx context.Context, entry *entities.AuditLog) error
	List(ctx context.Context, filter types.Filter) ([]entities.AuditLog, uint64, error)
	CountBy(ctx context.Context, column string, top int) ([]entities.AuditCount, error)
	Recent(ctx context.Context, limit int) ([]entities.AuditLog, error)
}

type AuditRepository struct {
	storage *pgxpool.Pool
}

func NewAuditRepository(storage *pgxpool.Pool) AuditRepositoryInterface {
	return &AuditRepository{storage: storage}
}

func (r *AuditRepository) Create(ctx context.Context, e *entities.AuditLog) error {
	var details []byte
	if e.Details != nil {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		details = raw
	}
	query, args, err := psql.Insert("audit_logs").
		Columns("actor_id", "action_type", "target_type", "target_id", "details", "created_at").
		Values(e.ActorID, e.ActionType, e.TargetType, e.TargetID, details, e.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&e.ID); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, filter types.Filter) ([]entities.AuditLog, uint64, error) {
	countBuilder, err := applyFilters(psql.Select("COUNT(*)").From("audit_logs"), filter, auditFilterColumns)
	if err != nil {
		return nil, 0, err
	}
	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}
	if total == 0 {
		return []entities.AuditLog{}, 0, nil
	}

	b, err := applyFilters(psql.Select(auditColumns...).From("audit_logs"), filter, auditFilterColumns)
	if err != nil {
		return nil, 0, err
	}
	b = b.OrderBy("created_at DESC", "id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset)
	logs, err := r.query(ctx, b)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// CountBy groups entries by action_type or target_type, largest first.
func (r *AuditRepository) CountBy(ctx context.Context, column string, top int) ([]entities.AuditCount, error) {
	if column != "action_type" && column != "target_type" {
		return nil, fmt.Errorf("unsupported audit grouping %q", column)
	}
	query, args, err := psql.Select(column, "COUNT(*) AS cnt").
		From("audit_logs").
		GroupBy(column).
		OrderBy("cnt DESC", column).
		Limit(uint64(top)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count audit logs: %w", err)
	}
	defer rows.Close()

	counts := make([]entities.AuditCount, 0)
	for rows.Next() {
		var c entities.AuditCount
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]entities.AuditLog, error) {
	return r.query(ctx, psql.Select(auditColumns...).From("audit_logs").OrderBy("created_at DESC", "id DESC").Limit(uint64(limit)))
}

func (r *AuditRepository) query(ctx context.Context, b sq.SelectBuilder) ([]entities.AuditLog, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]entities.AuditLog, 0)
	for rows.Next() {
		var e entities.AuditLog
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActionType, &e.TargetType, &e.TargetID, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}
