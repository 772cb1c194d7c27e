package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"crm-system/internal/authz"
	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	"crm-system/pkg/constants"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/eventbus"
	"crm-system/pkg/types"
	"crm-system/pkg/utils"
)

type ClientServiceInterface interface {
	Create(ctx context.Context, actor authz.Actor, payload dto.CreateClientDTO) (*entities.Client, error)
	FindOne(ctx context.Context, actor authz.Actor, id string) (*entities.Client, error)
	List(ctx context.Context, actor authz.Actor, filter types.Filter) ([]entities.Client, uint64, error)
	Update(ctx context.Context, actor authz.Actor, id string, payload dto.UpdateClientDTO) (*entities.Client, error)
	Delete(ctx context.Context, actor authz.Actor, id string) error
	Import(ctx context.Context, actor authz.Actor, file io.Reader) (*dto.ClientImportResult, error)
}

type ClientService struct {
	txManager   repositories.TxManagerInterface
	clientRepo  repositories.ClientRepositoryInterface
	requestRepo repositories.RequestRepositoryInterface
	policy      *authz.Policy
	bus         eventbus.Publisher
	logger      *zap.Logger
	now         func() time.Time
}

func NewClientService(
	txManager repositories.TxManagerInterface,
	clientRepo repositories.ClientRepositoryInterface,
	requestRepo repositories.RequestRepositoryInterface,
	policy *authz.Policy,
	bus eventbus.Publisher,
	logger *zap.Logger,
) ClientServiceInterface {
	return &ClientService{
		txManager:   txManager,
		clientRepo:  clientRepo,
		requestRepo: requestRepo,
		policy:      policy,
		bus:         bus,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *ClientService) Create(ctx context.Context, actor authz.Actor, payload dto.CreateClientDTO) (*entities.Client, error) {
	now := s.now()
	client := &entities.Client{
		ID:             uuid.NewString(),
		FullName:       strings.TrimSpace(payload.FullName),
		Phone:          utils.NormalizePhone(payload.Phone),
		SecondaryPhone: normalizeOptionalPhone(payload.SecondaryPhone),
		City:           payload.City,
		Address:        payload.Address,
		Notes:          payload.Notes,
		AdditionalData: payload.AdditionalData,
		Commitments:    payload.Commitments,
		CreatedByID:    actor.ID,
		BaseEntity:     types.BaseEntity{CreatedAt: now, UpdatedAt: now},
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		logFailure(s.logger, "create client", err)
		return nil, err
	}

	publishAudit(ctx, s.bus, actor.ID, constants.AuditActionCreate, constants.AuditTargetClient, client.ID,
		map[string]interface{}{"fullName": client.FullName}, now)
	return client, nil
}

func (s *ClientService) FindOne(ctx context.Context, actor authz.Actor, id string) (*entities.Client, error) {
	client, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, authz.ActionView, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *ClientService) List(ctx context.Context, actor authz.Actor, filter types.Filter) ([]entities.Client, uint64, error) {
	return s.clientRepo.List(ctx, filter, s.policy.ListScope(actor))
}

func (s *ClientService) Update(ctx context.Context, actor authz.Actor, id string, payload dto.UpdateClientDTO) (*entities.Client, error) {
	for _, required := range []string{"fullName", "phone"} {
		if payload.Has(required) {
			value := payload.FullName
			if required == "phone" {
				value = payload.Phone
			}
			if !value.Valid {
				return nil, apperrors.NewValidationError(required+" cannot be null", map[string]string{required: "required"})
			}
		}
	}

	client, err := s.FindOne(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if payload.Has("fullName") {
		client.FullName = strings.TrimSpace(payload.FullName.String)
	}
	if payload.Has("phone") {
		client.Phone = utils.NormalizePhone(payload.Phone.String)
	}
	if payload.Has("secondaryPhone") {
		client.SecondaryPhone = normalizeOptionalPhone(payload.SecondaryPhone.Ptr())
	}
	if payload.Has("city") {
		client.City = payload.City.Ptr()
	}
	if payload.Has("address") {
		client.Address = payload.Address.Ptr()
	}
	if payload.Has("notes") {
		client.Notes = payload.Notes.Ptr()
	}
	if payload.Has("additionalData") {
		client.AdditionalData = payload.AdditionalData
	}
	if payload.Has("commitments") {
		client.Commitments = payload.Commitments
	}
	client.UpdatedAt = s.now()

	if err := s.clientRepo.Update(ctx, client); err != nil {
		logFailure(s.logger, "update client", err, zap.String("clientID", id))
		return nil, err
	}

	publishAudit(ctx, s.bus, actor.ID, constants.AuditActionUpdate, constants.AuditTargetClient, id,
		map[string]interface{}{"fields": fieldNames(payload.Fields)}, client.UpdatedAt)
	return client, nil
}

// Delete refuses while the client still owns requests.
func (s *ClientService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	var removed *entities.Client
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		client, err := s.clientRepo.FindForUpdateInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(actor, authz.ActionDelete, client); err != nil {
			return err
		}
		count, err := s.requestRepo.CountByClientIDInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperrors.NewConflict("client still owns %d request(s)", count)
		}
		removed = client
		return s.clientRepo.DeleteInTx(ctx, tx, id)
	})
	if err != nil {
		logFailure(s.logger, "delete client", err, zap.String("clientID", id))
		return err
	}

	publishAudit(ctx, s.bus, actor.ID, constants.AuditActionDelete, constants.AuditTargetClient, id,
		map[string]interface{}{"fullName": removed.FullName}, s.now())
	return nil
}

var importHeaders = map[string]string{
	"name":            "fullName",
	"full name":       "fullName",
	"phone":           "phone",
	"secondary phone": "secondaryPhone",
	"city":            "city",
	"address":         "address",
	"notes":           "notes",
}

// Import reads the first sheet of an .xlsx workbook. The header row is
// matched by name; rows without a name or phone are reported as skipped.
func (s *ClientService) Import(ctx context.Context, actor authz.Actor, file io.Reader) (*dto.ClientImportResult, error) {
	book, err := excelize.OpenReader(file)
	if err != nil {
		return nil, apperrors.NewValidationError("file is not a valid .xlsx workbook", nil)
	}
	defer func() {
		if err := book.Close(); err != nil {
			s.logger.Warn("failed to close workbook", zap.Error(err))
		}
	}()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewValidationError("workbook has no sheets", nil)
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewValidationError("workbook is empty", nil)
	}

	columns := make(map[string]int)
	for i, header := range rows[0] {
		if field, ok := importHeaders[strings.ToLower(strings.TrimSpace(header))]; ok {
			if _, seen := columns[field]; !seen {
				columns[field] = i
			}
		}
	}
	if _, ok := columns["fullName"]; !ok {
		return nil, apperrors.NewValidationError("missing required column", map[string]string{"column": "name"})
	}
	if _, ok := columns["phone"]; !ok {
		return nil, apperrors.NewValidationError("missing required column", map[string]string{"column": "phone"})
	}

	result := &dto.ClientImportResult{Skipped: []dto.ImportRowError{}}
	for i, row := range rows[1:] {
		rowNumber := i + 2
		cell := func(field string) string {
			idx, ok := columns[field]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		if isBlankRow(row) {
			continue
		}
		name, phone := cell("fullName"), cell("phone")
		if name == "" || phone == "" {
			result.Skipped = append(result.Skipped, dto.ImportRowError{Row: rowNumber, Reason: "name and phone are required"})
			continue
		}

		now := s.now()
		client := &entities.Client{
			ID:             uuid.NewString(),
			FullName:       name,
			Phone:          utils.NormalizePhone(phone),
			SecondaryPhone: normalizeOptionalPhone(optional(cell("secondaryPhone"))),
			City:           optional(cell("city")),
			Address:        optional(cell("address")),
			Notes:          optional(cell("notes")),
			CreatedByID:    actor.ID,
			BaseEntity:     types.BaseEntity{CreatedAt: now, UpdatedAt: now},
		}
		if err := s.clientRepo.Create(ctx, client); err != nil {
			s.logger.Warn("client import row failed", zap.Int("row", rowNumber), zap.Error(err))
			result.Skipped = append(result.Skipped, dto.ImportRowError{Row: rowNumber, Reason: "could not be saved"})
			continue
		}
		result.Imported++
		publishAudit(ctx, s.bus, actor.ID, constants.AuditActionImport, constants.AuditTargetClient, client.ID,
			map[string]interface{}{"row": rowNumber, "fullName": name}, now)
	}

	s.logger.Info("client import finished",
		zap.String("actorID", actor.ID), zap.Int("imported", result.Imported), zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func normalizeOptionalPhone(phone *string) *string {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return nil
	}
	normalized := utils.NormalizePhone(*phone)
	return &normalized
}
