package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crm-system/internal/authz"
	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	"crm-system/pkg/constants"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/eventbus"
	"crm-system/pkg/types"
)

const maxBankTermMonths = 360

type BankServiceInterface interface {
	List(ctx context.Context, onlyActive bool) ([]entities.Bank, error)
	Create(ctx context.Context, actor authz.Actor, payload dto.CreateBankDTO) (*entities.Bank, error)
	Update(ctx context.Context, actor authz.Actor, id string, payload dto.UpdateBankDTO) (*entities.Bank, error)
}

type BankService struct {
	bankRepo repositories.BankRepositoryInterface
	bus      eventbus.Publisher
	logger   *zap.Logger
}

func NewBankService(bankRepo repositories.BankRepositoryInterface, bus eventbus.Publisher, logger *zap.Logger) BankServiceInterface {
	return &BankService{bankRepo: bankRepo, bus: bus, logger: logger}
}

func (s *BankService) List(ctx context.Context, onlyActive bool) ([]entities.Bank, error) {
	return s.bankRepo.List(ctx, onlyActive)
}

func (s *BankService) Create(ctx context.Context, actor authz.Actor, payload dto.CreateBankDTO) (*entities.Bank, error) {
	now := time.Now().UTC()
	bank := &entities.Bank{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(payload.Name),
		AnnualRate:    payload.AnnualRate,
		MaxTermMonths: payload.MaxTermMonths,
		IsActive:      payload.IsActive == nil || *payload.IsActive,
		BaseEntity:    types.BaseEntity{CreatedAt: now, UpdatedAt: now},
	}
	if err := s.bankRepo.Create(ctx, bank); err != nil {
		logFailure(s.logger, "create bank", err, zap.String("name", bank.Name))
		return nil, err
	}
	publishAudit(ctx, s.bus, actor.ID, constants.AuditActionCreate, constants.AuditTargetBank, bank.ID,
		map[string]interface{}{"name": bank.Name}, now)
	return bank, nil
}

func (s *BankService) Update(ctx context.Context, actor authz.Actor, id string, payload dto.UpdateBankDTO) (*entities.Bank, error) {
	bank, err := s.bankRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload.Name.Valid {
		bank.Name = strings.TrimSpace(payload.Name.String)
	}
	if payload.AnnualRate.Valid {
		bank.AnnualRate = payload.AnnualRate.Decimal
	}
	if payload.MaxTermMonths.Valid {
		if payload.MaxTermMonths.Int < 1 || payload.MaxTermMonths.Int > maxBankTermMonths {
			return nil, apperrors.NewValidationError("maxTermMonths out of range", map[string]string{"maxTermMonths": "1..360"})
		}
		bank.MaxTermMonths = payload.MaxTermMonths.Int
	}
	if payload.IsActive.Valid {
		bank.IsActive = payload.IsActive.Bool
	}
	bank.UpdatedAt = time.Now().UTC()

	if err := s.bankRepo.Update(ctx, bank); err != nil {
		logFailure(s.logger, "update bank", err, zap.String("bankID", id))
		return nil, err
	}
	publishAudit(ctx, s.bus, actor.ID, constants.AuditActionUpdate, constants.AuditTargetBank, id,
		map[string]interface{}{"name": bank.Name}, bank.UpdatedAt)
	return bank, nil
}
