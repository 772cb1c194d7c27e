package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-system/internal/services"
	"crm-system/pkg/api"
	"crm-system/pkg/utils"
)

type KanbanController struct {
	kanbanService services.KanbanServiceInterface
	logger        *zap.Logger
}

func NewKanbanController(kanbanService services.KanbanServiceInterface, logger *zap.Logger) *KanbanController {
	return &KanbanController{kanbanService: kanbanService, logger: logger}
}

func (c *KanbanController) Board(ctx echo.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	board, err := c.kanbanService.Board(ctx.Request().Context(), actor)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "kanban board fetched", board)
}

func (c *KanbanController) Stats(ctx echo.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	stats, err := c.kanbanService.Stats(ctx.Request().Context(), actor)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "request statistics fetched", stats)
}
