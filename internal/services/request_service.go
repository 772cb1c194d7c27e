package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crm-system/internal/authz"
	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/events"
	"crm-system/internal/repositories"
	"crm-system/pkg/constants"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/eventbus"
	"crm-system/pkg/filestorage"
	"crm-system/pkg/metrics"
	"crm-system/pkg/types"
	"crm-system/pkg/utils"
)

type RequestServiceInterface interface {
	Create(ctx context.Context, actor authz.Actor, payload dto.CreateRequestDTO) (*entities.RequestView, error)
	FindOne(ctx context.Context, actor authz.Actor, id string) (*entities.RequestView, error)
	List(ctx context.Context, actor authz.Actor, filter types.Filter) ([]entities.RequestView, uint64, error)
	Update(ctx context.Context, actor authz.Actor, id string, payload dto.UpdateRequestDTO) (*entities.RequestView, error)
	Move(ctx context.Context, actor authz.Actor, id string, payload dto.MoveRequestDTO) (*entities.RequestView, error)
	Remove(ctx context.Context, actor authz.Actor, id string) error
	History(ctx context.Context, actor authz.Actor, id string) ([]entities.RequestEvent, error)
}

// RequestRepositories groups the stores the lifecycle engine writes to.
type RequestRepositories struct {
	Requests    repositories.RequestRepositoryInterface
	Events      repositories.RequestEventRepositoryInterface
	Clients     repositories.ClientRepositoryInterface
	Installment repositories.InstallmentRepositoryInterface
	Users       repositories.UserRepositoryInterface
	Banks       repositories.BankRepositoryInterface
	Attachments repositories.AttachmentRepositoryInterface
}

type RequestService struct {
	txManager repositories.TxManagerInterface
	repos     RequestRepositories
	storage   filestorage.FileStorageInterface
	policy    *authz.Policy
	bus       eventbus.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewRequestService(
	txManager repositories.TxManagerInterface,
	repos RequestRepositories,
	storage filestorage.FileStorageInterface,
	policy *authz.Policy,
	bus eventbus.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) RequestServiceInterface {
	return &RequestService{
		txManager: txManager,
		repos:     repos,
		storage:   storage,
		policy:    policy,
		bus:       bus,
		metrics:   m,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Create records the request together with its creation event (null -> initial status).
func (s *RequestService) Create(ctx context.Context, actor authz.Actor, payload dto.CreateRequestDTO) (*entities.RequestView, error) {
	requestType := constants.RequestType(payload.Type)
	if !requestType.IsValid() {
		return nil, apperrors.NewValidationError("unknown request type", map[string]string{"type": payload.Type})
	}

	status := constants.DefaultInitialStatus
	if payload.InitialStatus != "" {
		status = constants.RequestStatus(payload.InitialStatus)
		if !status.IsValid() {
			return nil, apperrors.NewValidationError("unknown request status", map[string]string{"initialStatus": payload.InitialStatus})
		}
	}

	if err := s.ensureAssignee(ctx, payload.AssignedToID); err != nil {
		return nil, err
	}
	if payload.InstallmentDetails != nil {
		if err := s.ensureBank(ctx, payload.InstallmentDetails.BankID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	req := &entities.Request{
		ID:            s.newID(),
		Title:         payload.Title,
		Type:          requestType,
		InitialStatus: status,
		CurrentStatus: status,
		Price:         payload.Price,
		CustomFields:  payload.CustomFields,
		ClientID:      payload.ClientID,
		AssignedToID:  payload.AssignedToID,
		CreatedByID:   actor.ID,
		BaseEntity:    types.BaseEntity{CreatedAt: now, UpdatedAt: now},
	}

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.repos.Clients.TouchInTx(ctx, tx, req.ClientID, now); err != nil {
			return err
		}
		if err := s.repos.Requests.CreateInTx(ctx, tx, req); err != nil {
			return err
		}
		event := &entities.RequestEvent{
			ID:          s.newID(),
			RequestID:   req.ID,
			ToStatus:    status,
			ChangedByID: actor.ID,
			CreatedAt:   now,
		}
		if err := s.repos.Events.CreateInTx(ctx, tx, event); err != nil {
			return err
		}
		if requestType == constants.RequestTypeInstallment && payload.InstallmentDetails != nil {
			details := s.buildInstallment(req.ID, payload.InstallmentDetails, now)
			details.Recalculate(priceOrZero(req.Price))
			if err := s.repos.Installment.UpsertInTx(ctx, tx, details); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logFailure("create request", err, zap.String("clientID", payload.ClientID))
		return nil, err
	}

	s.metrics.RequestCreated(string(requestType))
	s.publishChange(ctx, events.RequestCreated, *req, nil, actor.ID, now)
	s.audit(ctx, actor.ID, constants.AuditActionCreate, req.ID, map[string]interface{}{
		"title":  req.Title,
		"type":   req.Type,
		"status": req.CurrentStatus,
	}, now)

	return s.repos.Requests.FindView(ctx, req.ID)
}

func (s *RequestService) FindOne(ctx context.Context, actor authz.Actor, id string) (*entities.RequestView, error) {
	view, err := s.repos.Requests.FindView(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, authz.ActionView, &view.Request); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *RequestService) List(ctx context.Context, actor authz.Actor, filter types.Filter) ([]entities.RequestView, uint64, error) {
	return s.repos.Requests.List(ctx, filter, s.policy.ListScope(actor))
}

// Update edits plain fields; it never records a transition. A missing or
// out-of-scope request is reported before any assignee or bank problem.
func (s *RequestService) Update(ctx context.Context, actor authz.Actor, id string, payload dto.UpdateRequestDTO) (*entities.RequestView, error) {
	if payload.Has("title") && !payload.Title.Valid {
		return nil, apperrors.NewValidationError("title cannot be null", map[string]string{"title": "required"})
	}

	var updated entities.Request
	now := s.now()
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		req, err := s.repos.Requests.FindForUpdateInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(actor, authz.ActionUpdate, req); err != nil {
			return err
		}
		if payload.Has("assignedToId") && payload.AssignedToID.Valid {
			if err := s.ensureAssignee(ctx, &payload.AssignedToID.String); err != nil {
				return err
			}
		}
		if payload.InstallmentDetails != nil {
			if err := s.ensureBank(ctx, payload.InstallmentDetails.BankID); err != nil {
				return err
			}
		}

		priceChanged := false
		if payload.Has("title") {
			req.Title = payload.Title.String
		}
		if payload.Has("assignedToId") {
			req.AssignedToID = nil
			if payload.AssignedToID.Valid {
				assignee := payload.AssignedToID.String
				req.AssignedToID = &assignee
			}
		}
		if payload.Has("price") {
			priceChanged = !sameNullDecimal(req.Price, payload.Price)
			req.Price = payload.Price
		}
		if payload.Has("customFields") {
			req.CustomFields = payload.CustomFields
		}
		if payload.Has("archived") && payload.Archived.Valid {
			req.Archived = payload.Archived.Bool
		}
		req.UpdatedAt = now

		if err := s.repos.Requests.UpdateFieldsInTx(ctx, tx, req); err != nil {
			return err
		}

		if req.Type == constants.RequestTypeInstallment {
			if err := s.writeInstallment(ctx, tx, req, payload.InstallmentDetails, priceChanged, now); err != nil {
				return err
			}
		}
		updated = *req
		return nil
	})
	if err != nil {
		s.logFailure("update request", err, zap.String("requestID", id))
		return nil, err
	}

	s.publishChange(ctx, events.RequestUpdated, updated, nil, actor.ID, now)
	s.audit(ctx, actor.ID, constants.AuditActionUpdate, id, map[string]interface{}{"fields": fieldNames(payload.Fields)}, now)

	return s.repos.Requests.FindView(ctx, id)
}

// writeInstallment upserts financing details. Derived amounts are recomputed
// when new details arrive or the price they depend on changed.
func (s *RequestService) writeInstallment(ctx context.Context, tx pgx.Tx, req *entities.Request, in *dto.InstallmentDetailsDTO, priceChanged bool, now time.Time) error {
	var details *entities.InstallmentDetails
	switch {
	case in != nil:
		details = s.buildInstallment(req.ID, in, now)
	case priceChanged:
		existing, err := s.repos.Installment.FindByRequestIDInTx(ctx, tx, req.ID)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		details = existing
		details.UpdatedAt = now
	default:
		return nil
	}
	details.Recalculate(priceOrZero(req.Price))
	return s.repos.Installment.UpsertInTx(ctx, tx, details)
}

// Move changes currentStatus and appends the matching event atomically.
// Checks run in order: existence, permission, then same-status rejection.
func (s *RequestService) Move(ctx context.Context, actor authz.Actor, id string, payload dto.MoveRequestDTO) (*entities.RequestView, error) {
	toStatus := constants.RequestStatus(payload.ToStatus)
	if !toStatus.IsValid() {
		return nil, apperrors.NewValidationError("unknown request status", map[string]string{"toStatus": payload.ToStatus})
	}
	comment := utils.FirstNonEmpty(payload.Comment, payload.Feedback)

	var (
		moved    entities.Request
		previous constants.RequestStatus
	)
	now := s.now()
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		req, err := s.repos.Requests.FindForUpdateInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(actor, authz.ActionTransition, req); err != nil {
			return err
		}
		if req.CurrentStatus == toStatus {
			return apperrors.NewInvalidTransition("request is already in status %s", toStatus)
		}

		previous = req.CurrentStatus
		if err := s.repos.Requests.UpdateStatusInTx(ctx, tx, id, toStatus, now); err != nil {
			return err
		}
		from := previous
		event := &entities.RequestEvent{
			ID:          s.newID(),
			RequestID:   id,
			FromStatus:  &from,
			ToStatus:    toStatus,
			Comment:     comment,
			ChangedByID: actor.ID,
			CreatedAt:   now,
		}
		if err := s.repos.Events.CreateInTx(ctx, tx, event); err != nil {
			return err
		}

		req.CurrentStatus = toStatus
		req.UpdatedAt = now
		moved = *req
		return nil
	})
	if err != nil {
		s.logFailure("move request", err, zap.String("requestID", id), zap.String("toStatus", string(toStatus)))
		return nil, err
	}

	s.metrics.RequestTransitioned(string(previous), string(toStatus))
	s.publishChange(ctx, events.RequestMoved, moved, &previous, actor.ID, now)
	s.audit(ctx, actor.ID, constants.AuditActionTransition, id, map[string]interface{}{
		"from":    previous,
		"to":      toStatus,
		"comment": utils.StringOrEmpty(comment),
	}, now)

	return s.repos.Requests.FindView(ctx, id)
}

// Remove deletes the request with its history and touches the owning client.
func (s *RequestService) Remove(ctx context.Context, actor authz.Actor, id string) error {
	var (
		removed entities.Request
		keys    []string
	)
	now := s.now()
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		req, err := s.repos.Requests.FindForUpdateInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(actor, authz.ActionDelete, req); err != nil {
			return err
		}

		keys, err = s.repos.Attachments.StorageKeysByRequestIDInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.repos.Events.DeleteByRequestIDInTx(ctx, tx, id); err != nil {
			return err
		}
		if err := s.repos.Requests.DeleteInTx(ctx, tx, id); err != nil {
			return err
		}
		if err := s.repos.Clients.TouchInTx(ctx, tx, req.ClientID, now); err != nil {
			return err
		}
		removed = *req
		return nil
	})
	if err != nil {
		s.logFailure("remove request", err, zap.String("requestID", id))
		return err
	}

	if s.storage != nil {
		for _, key := range keys {
			if err := s.storage.Delete(ctx, key); err != nil {
				s.logger.Warn("orphaned attachment blob", zap.String("key", key), zap.Error(err))
			}
		}
	}

	s.publishChange(ctx, events.RequestDeleted, removed, nil, actor.ID, now)
	s.audit(ctx, actor.ID, constants.AuditActionDelete, id, map[string]interface{}{
		"title":    removed.Title,
		"clientId": removed.ClientID,
	}, now)
	return nil
}

func (s *RequestService) History(ctx context.Context, actor authz.Actor, id string) ([]entities.RequestEvent, error) {
	req, err := s.repos.Requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, authz.ActionView, req); err != nil {
		return nil, err
	}
	return s.repos.Events.FindByRequestID(ctx, id)
}

func (s *RequestService) ensureAssignee(ctx context.Context, assigneeID *string) error {
	if assigneeID == nil {
		return nil
	}
	user, err := s.repos.Users.FindByID(ctx, *assigneeID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NewValidationError("assignee does not exist", map[string]string{"assignedToId": *assigneeID})
	}
	if err != nil {
		return err
	}
	if !user.IsActive {
		return apperrors.NewValidationError("assignee is inactive", map[string]string{"assignedToId": *assigneeID})
	}
	return nil
}

func (s *RequestService) ensureBank(ctx context.Context, bankID *string) error {
	if bankID == nil || s.repos.Banks == nil {
		return nil
	}
	_, err := s.repos.Banks.FindByID(ctx, *bankID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NewValidationError("bank does not exist", map[string]string{"bankId": *bankID})
	}
	return err
}

func (s *RequestService) buildInstallment(requestID string, in *dto.InstallmentDetailsDTO, now time.Time) *entities.InstallmentDetails {
	obligations := make([]entities.Obligation, 0, len(in.Obligations))
	for _, o := range in.Obligations {
		obligations = append(obligations, entities.Obligation{Type: o.Type, Amount: o.Amount})
	}
	return &entities.InstallmentDetails{
		RequestID:     requestID,
		BankID:        in.BankID,
		Salary:        in.Salary,
		Obligations:   obligations,
		DownPayment:   in.DownPayment,
		TermMonths:    in.TermMonths,
		DeductionRate: in.DeductionRate,
		BaseEntity:    types.BaseEntity{CreatedAt: now, UpdatedAt: now},
	}
}

func (s *RequestService) publishChange(ctx context.Context, kind events.RequestChangeKind, req entities.Request, from *constants.RequestStatus, actorID string, at time.Time) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.RequestChangedEvent{Kind: kind, Request: req, FromStatus: from, ActorID: actorID, At: at})
}

func (s *RequestService) audit(ctx context.Context, actorID, action, targetID string, details map[string]interface{}, at time.Time) {
	publishAudit(ctx, s.bus, actorID, action, constants.AuditTargetRequest, targetID, details, at)
}

func (s *RequestService) logFailure(op string, err error, fields ...zap.Field) {
	logFailure(s.logger, op, err, fields...)
}

func priceOrZero(price decimal.NullDecimal) decimal.Decimal {
	if !price.Valid {
		return decimal.Zero
	}
	return price.Decimal
}

func sameNullDecimal(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}
