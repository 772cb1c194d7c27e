package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"crm-system/internal/authz"
	"crm-system/internal/entities"
	"crm-system/pkg/constants"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/types"
)

const requestTable = "requests"

var requestColumns = []string{
	"r.id", "r.title", "r.type", "r.initial_status", "r.current_status", "r.price",
	"r.custom_fields", "r.archived", "r.client_id", "r.assigned_to_id", "r.created_by_id",
	"r.created_at", "r.updated_at",
}

// viewColumns extends requestColumns with the joined relations, in scan order.
var viewColumns = append(append([]string{}, requestColumns...),
	"c.full_name", "c.phone",
	"au.full_name", "au.role",
	"cu.full_name", "cu.role",
	"le.id", "le.from_status", "le.to_status", "le.comment", "le.changed_by_id", "le.created_at",
	"(SELECT COUNT(*) FROM comments cm WHERE cm.request_id = r.id)",
	"(SELECT COUNT(*) FROM attachments at WHERE at.request_id = r.id)",
	"i.request_id", "i.bank_id", "i.salary", "i.obligations", "i.down_payment", "i.term_months",
	"i.deduction_rate", "i.deducted_amount", "i.final_amount", "i.created_at", "i.updated_at",
)

const latestEventJoin = `LATERAL (
	SELECT e.id, e.from_status, e.to_status, e.comment, e.changed_by_id, e.created_at
	FROM request_events e
	WHERE e.request_id = r.id
	ORDER BY e.created_at DESC, e.seq DESC
	LIMIT 1
) le ON TRUE`

var requestSortColumns = map[string]string{
	"updatedAt":     "r.updated_at",
	"createdAt":     "r.created_at",
	"title":         "r.title",
	"price":         "r.price",
	"currentStatus": "r.current_status",
	"type":          "r.type",
}

var requestFilterColumns = map[string]filterColumn{
	"status":       {"r.current_status", textColumn},
	"type":         {"r.type", textColumn},
	"assignedToId": {"r.assigned_to_id", uuidColumn},
	"clientId":     {"r.client_id", uuidColumn},
	"createdById":  {"r.created_by_id", uuidColumn},
	"archived":     {"r.archived", boolColumn},
}

type RequestRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, req *entities.Request) error
	FindByID(ctx context.Context, id string) (*entities.Request, error)
	FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id string) (*entities.Request, error)
	FindView(ctx context.Context, id string) (*entities.RequestView, error)
	UpdateFieldsInTx(ctx context.Context, tx pgx.Tx, req *entities.Request) error
	UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id string, status constants.RequestStatus, at time.Time) error
	TouchInTx(ctx context.Context, tx pgx.Tx, id string, at time.Time) error
	DeleteInTx(ctx context.Context, tx pgx.Tx, id string) error
	CountByClientIDInTx(ctx context.Context, tx pgx.Tx, clientID string) (int, error)
	List(ctx context.Context, filter types.Filter, scope authz.Scope) ([]entities.RequestView, uint64, error)
	ListForBoard(ctx context.Context, scope authz.Scope) ([]entities.RequestView, error)
	CountByStatus(ctx context.Context, scope authz.Scope) (map[constants.RequestStatus]int, error)
	CountByType(ctx context.Context, scope authz.Scope) (map[constants.RequestType]int, error)
}

type RequestRepository struct {
	storage *pgxpool.Pool
}

func NewRequestRepository(storage *pgxpool.Pool) RequestRepositoryInterface {
	return &RequestRepository{storage: storage}
}

func (r *RequestRepository) CreateInTx(ctx context.Context, tx pgx.Tx, req *entities.Request) error {
	customFields, err := json.Marshal(nonNilMap(req.CustomFields))
	if err != nil {
		return fmt.Errorf("encode custom fields: %w", err)
	}

	query, args, err := psql.Insert(requestTable).
		Columns("id", "title", "type", "initial_status", "current_status", "price", "custom_fields",
			"archived", "client_id", "assigned_to_id", "created_by_id", "created_at", "updated_at").
		Values(req.ID, req.Title, string(req.Type), string(req.InitialStatus), string(req.CurrentStatus), req.Price,
			customFields, req.Archived, req.ClientID, req.AssignedToID, req.CreatedByID, req.CreatedAt, req.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (r *RequestRepository) FindByID(ctx context.Context, id string) (*entities.Request, error) {
	return r.findOne(ctx, r.storage, id, false)
}

// FindForUpdateInTx locks the row until the transaction ends.
func (r *RequestRepository) FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id string) (*entities.Request, error) {
	return r.findOne(ctx, tx, id, true)
}

func (r *RequestRepository) findOne(ctx context.Context, q querier, id string, forUpdate bool) (*entities.Request, error) {
	b := psql.Select(requestColumns...).From("requests r").Where(sq.Eq{"r.id": id})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	var req entities.Request
	if err := scanRequest(q.QueryRow(ctx, query, args...), &req); err != nil {
		return nil, notFound(err, "request", id)
	}
	return &req, nil
}

func (r *RequestRepository) FindView(ctx context.Context, id string) (*entities.RequestView, error) {
	query, args, err := r.viewQuery().Where(sq.Eq{"r.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	view, err := scanRequestView(r.storage.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "request", id)
	}
	return view, nil
}

func (r *RequestRepository) UpdateFieldsInTx(ctx context.Context, tx pgx.Tx, req *entities.Request) error {
	customFields, err := json.Marshal(nonNilMap(req.CustomFields))
	if err != nil {
		return fmt.Errorf("encode custom fields: %w", err)
	}
	query, args, err := psql.Update(requestTable).
		Set("title", req.Title).
		Set("price", req.Price).
		Set("custom_fields", customFields).
		Set("archived", req.Archived).
		Set("assigned_to_id", req.AssignedToID).
		Set("updated_at", req.UpdatedAt).
		Where(sq.Eq{"id": req.ID}).
		ToSql()
	if err != nil {
		return err
	}
	return execAffectingOne(ctx, tx, "request", req.ID, query, args...)
}

func (r *RequestRepository) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id string, status constants.RequestStatus, at time.Time) error {
	query, args, err := psql.Update(requestTable).
		Set("current_status", string(status)).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	return execAffectingOne(ctx, tx, "request", id, query, args...)
}

func (r *RequestRepository) TouchInTx(ctx context.Context, tx pgx.Tx, id string, at time.Time) error {
	query, args, err := psql.Update(requestTable).Set("updated_at", at).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	return execAffectingOne(ctx, tx, "request", id, query, args...)
}

func (r *RequestRepository) DeleteInTx(ctx context.Context, tx pgx.Tx, id string) error {
	query, args, err := psql.Delete(requestTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	return execAffectingOne(ctx, tx, "request", id, query, args...)
}

func (r *RequestRepository) CountByClientIDInTx(ctx context.Context, tx pgx.Tx, clientID string) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From(requestTable).Where(sq.Eq{"client_id": clientID}).ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := tx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count client requests: %w", err)
	}
	return count, nil
}

func (r *RequestRepository) List(ctx context.Context, filter types.Filter, scope authz.Scope) ([]entities.RequestView, uint64, error) {
	countBuilder := psql.Select("COUNT(*)").From("requests r").Join("clients c ON c.id = r.client_id")
	countBuilder, err := r.applyListFilters(countBuilder, filter, scope)
	if err != nil {
		return nil, 0, err
	}
	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}

	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}
	if total == 0 {
		return []entities.RequestView{}, 0, nil
	}

	b, err := r.applyListFilters(r.viewQuery(), filter, scope)
	if err != nil {
		return nil, 0, err
	}
	b = b.OrderBy(orderBy(filter, requestSortColumns, "r.updated_at DESC"), "r.id").
		Limit(filter.Limit).
		Offset(filter.Offset)
	query, args, err := b.ToSql()
	if err != nil {
		return nil, 0, err
	}

	views, err := r.queryViews(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (r *RequestRepository) applyListFilters(b sq.SelectBuilder, filter types.Filter, scope authz.Scope) (sq.SelectBuilder, error) {
	b = applySecurity(b, scope.RequestPredicate("r"))
	b, err := applyFilters(b, filter, requestFilterColumns)
	if err != nil {
		return b, err
	}
	if filter.Search != "" {
		b = b.Where(searchPredicate(filter.Search, "r.title", "c.full_name", "c.phone"))
	}
	return b, nil
}

// ListForBoard returns every visible request, most recently touched first.
func (r *RequestRepository) ListForBoard(ctx context.Context, scope authz.Scope) ([]entities.RequestView, error) {
	b := applySecurity(r.viewQuery(), scope.RequestPredicate("r")).OrderBy("r.updated_at DESC", "r.id")
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryViews(ctx, query, args...)
}

func (r *RequestRepository) CountByStatus(ctx context.Context, scope authz.Scope) (map[constants.RequestStatus]int, error) {
	counts := make(map[constants.RequestStatus]int)
	err := r.countGrouped(ctx, "r.current_status", scope, func(key string, n int) {
		counts[constants.RequestStatus(key)] = n
	})
	return counts, err
}

func (r *RequestRepository) CountByType(ctx context.Context, scope authz.Scope) (map[constants.RequestType]int, error) {
	counts := make(map[constants.RequestType]int)
	err := r.countGrouped(ctx, "r.type", scope, func(key string, n int) {
		counts[constants.RequestType(key)] = n
	})
	return counts, err
}

func (r *RequestRepository) countGrouped(ctx context.Context, column string, scope authz.Scope, add func(string, int)) error {
	b := psql.Select(column, "COUNT(*)").From("requests r").GroupBy(column)
	b = applySecurity(b, scope.RequestPredicate("r"))
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("count requests by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		add(key, n)
	}
	return rows.Err()
}

func (r *RequestRepository) viewQuery() sq.SelectBuilder {
	return psql.Select(viewColumns...).
		From("requests r").
		Join("clients c ON c.id = r.client_id").
		Join("users cu ON cu.id = r.created_by_id").
		LeftJoin("users au ON au.id = r.assigned_to_id").
		LeftJoin(latestEventJoin).
		LeftJoin("installment_details i ON i.request_id = r.id")
}

func (r *RequestRepository) queryViews(ctx context.Context, query string, args ...interface{}) ([]entities.RequestView, error) {
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	views := make([]entities.RequestView, 0)
	for rows.Next() {
		view, err := scanRequestView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		views = append(views, *view)
	}
	return views, rows.Err()
}

func scanRequest(row rowScanner, req *entities.Request) error {
	return row.Scan(requestScanTargets(req)...)
}

func requestScanTargets(req *entities.Request) []any {
	return []any{
		&req.ID, &req.Title, &req.Type, &req.InitialStatus, &req.CurrentStatus, &req.Price,
		&req.CustomFields, &req.Archived, &req.ClientID, &req.AssignedToID, &req.CreatedByID,
		&req.CreatedAt, &req.UpdatedAt,
	}
}

func scanRequestView(row rowScanner) (*entities.RequestView, error) {
	var (
		view entities.RequestView

		clientName, clientPhone     string
		assigneeName, assigneeRole  *string
		creatorName, creatorRole    string
		eventID, eventTo, eventBy   *string
		eventFrom, eventComment     *string
		eventAt                     *time.Time
		instRequestID, instBankID   *string
		instSalary, instDown        decimal.NullDecimal
		instRate, instDeducted      decimal.NullDecimal
		instFinal                   decimal.NullDecimal
		instObligations             []byte
		instTerm                    *int
		instCreatedAt, instUpdateAt *time.Time
	)

	targets := append(requestScanTargets(&view.Request),
		&clientName, &clientPhone,
		&assigneeName, &assigneeRole,
		&creatorName, &creatorRole,
		&eventID, &eventFrom, &eventTo, &eventComment, &eventBy, &eventAt,
		&view.CommentsCount, &view.AttachmentsCount,
		&instRequestID, &instBankID, &instSalary, &instObligations, &instDown, &instTerm,
		&instRate, &instDeducted, &instFinal, &instCreatedAt, &instUpdateAt,
	)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}

	view.Client = &entities.ClientRef{ID: view.ClientID, FullName: clientName, Phone: clientPhone}
	view.CreatedBy = &entities.UserRef{ID: view.CreatedByID, FullName: creatorName, Role: constants.Role(creatorRole)}
	if view.AssignedToID != nil && assigneeName != nil {
		ref := &entities.UserRef{ID: *view.AssignedToID, FullName: *assigneeName}
		if assigneeRole != nil {
			ref.Role = constants.Role(*assigneeRole)
		}
		view.AssignedTo = ref
	}

	if eventID != nil {
		event := &entities.RequestEvent{
			ID:          *eventID,
			RequestID:   view.ID,
			ToStatus:    constants.RequestStatus(deref(eventTo)),
			Comment:     eventComment,
			ChangedByID: deref(eventBy),
		}
		if eventFrom != nil {
			from := constants.RequestStatus(*eventFrom)
			event.FromStatus = &from
		}
		if eventAt != nil {
			event.CreatedAt = *eventAt
		}
		view.LatestEvent = event
	}

	if instRequestID != nil {
		inst := &entities.InstallmentDetails{
			RequestID:      *instRequestID,
			BankID:         instBankID,
			Salary:         instSalary.Decimal,
			DownPayment:    instDown.Decimal,
			DeductionRate:  instRate.Decimal,
			DeductedAmount: instDeducted.Decimal,
			FinalAmount:    instFinal.Decimal,
		}
		if instTerm != nil {
			inst.TermMonths = *instTerm
		}
		if len(instObligations) > 0 {
			if err := json.Unmarshal(instObligations, &inst.Obligations); err != nil {
				return nil, fmt.Errorf("decode obligations: %w", err)
			}
		}
		if instCreatedAt != nil {
			inst.CreatedAt = *instCreatedAt
		}
		if instUpdateAt != nil {
			inst.UpdatedAt = *instUpdateAt
		}
		view.Installment = inst
	}
	return &view, nil
}

// execAffectingOne runs a statement that must touch exactly one row.
func execAffectingOne(ctx context.Context, q querier, entity, id, query string, args ...interface{}) error {
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("write %s: %w", entity, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFound("%s %s not found", entity, id)
	}
	return nil
}

func nonNilMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
