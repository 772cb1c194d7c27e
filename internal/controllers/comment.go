package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/services"
	"crm-system/pkg/api"
	"crm-system/pkg/utils"
)

// CommentController serves comments under /requests/:id and /clients/:id.
type CommentController struct {
	commentService services.CommentServiceInterface
	logger         *zap.Logger
}

func NewCommentController(commentService services.CommentServiceInterface, logger *zap.Logger) *CommentController {
	return &CommentController{commentService: commentService, logger: logger}
}

func (c *CommentController) List(kind entities.OwnerKind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		actor, err := actorFrom(ctx)
		if err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
		ownerID, err := idParam(ctx, "id", string(kind))
		if err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}

		comments, err := c.commentService.List(ctx.Request().Context(), actor, kind, ownerID)
		if err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
		if comments == nil {
			comments = []entities.Comment{}
		}
		return api.SuccessOne(ctx, http.StatusOK, "comments fetched", comments)
	}
}

func (c *CommentController) Create(kind entities.OwnerKind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		actor, err := actorFrom(ctx)
		if err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
		ownerID, err := idParam(ctx, "id", string(kind))
		if err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
		var payload dto.CreateCommentDTO
		if err := bindJSON(ctx, &payload); err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}

		comment, err := c.commentService.Add(ctx.Request().Context(), actor, kind, ownerID, payload.Body)
		if err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
		return api.SuccessOne(ctx, http.StatusCreated, "comment added", comment)
	}
}
