package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-system/internal/dto"
	"crm-system/internal/services"
	"crm-system/pkg/api"
	"crm-system/pkg/utils"
)

type BankController struct {
	bankService services.BankServiceInterface
	logger      *zap.Logger
}

func NewBankController(bankService services.BankServiceInterface, logger *zap.Logger) *BankController {
	return &BankController{bankService: bankService, logger: logger}
}

// List returns active banks unless ?all=true.
func (c *BankController) List(ctx echo.Context) error {
	all, _ := strconv.ParseBool(ctx.QueryParam("all"))
	banks, err := c.bankService.List(ctx.Request().Context(), !all)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	total := uint64(len(banks))
	return api.SuccessList(ctx, "banks fetched", banks, total, 1, total)
}

func (c *BankController) Create(ctx echo.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var payload dto.CreateBankDTO
	if err := bindJSON(ctx, &payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	bank, err := c.bankService.Create(ctx.Request().Context(), actor, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "bank created", bank)
}

func (c *BankController) Update(ctx echo.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := idParam(ctx, "id", "bank")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var payload dto.UpdateBankDTO
	if err := bindJSON(ctx, &payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	bank, err := c.bankService.Update(ctx.Request().Context(), actor, id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "bank updated", bank)
}
