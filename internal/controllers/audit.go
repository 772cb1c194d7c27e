package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-system/internal/services"
	"crm-system/pkg/api"
	"crm-system/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AuditController struct {
	auditService services.AuditServiceInterface
	logger       *zap.Logger
}

func NewAuditController(auditService services.AuditServiceInterface, logger *zap.Logger) *AuditController {
	return &AuditController{auditService: auditService, logger: logger}
}

func (c *AuditController) List(ctx echo.Context) error {
	filter := utils.ParseQuery(ctx.QueryParams())
	logs, total, err := c.auditService.List(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessList(ctx, "audit logs fetched", logs, total, filter.Page, filter.Limit)
}

func (c *AuditController) Stats(ctx echo.Context) error {
	top := utils.ParseBoundedInt(ctx.QueryParams(), "top", 10, 50)
	stats, err := c.auditService.Stats(ctx.Request().Context(), top)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "audit statistics fetched", stats)
}

func (c *AuditController) Recent(ctx echo.Context) error {
	limit := utils.ParseBoundedInt(ctx.QueryParams(), "limit", 20, 100)
	logs, err := c.auditService.Recent(ctx.Request().Context(), limit)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "recent audit logs fetched", logs)
}

func (c *AuditController) Export(ctx echo.Context) error {
	filter := utils.ParseQuery(ctx.QueryParams())
	content, err := c.auditService.Export(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	name := fmt.Sprintf("audit-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return ctx.Blob(http.StatusOK, xlsxContentType, content)
}
