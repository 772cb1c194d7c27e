package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/services"
	"crm-system/pkg/api"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/utils"
)

type AttachmentController struct {
	attachmentService services.AttachmentServiceInterface
	logger            *zap.Logger
}

func NewAttachmentController(attachmentService services.AttachmentServiceInterface, logger *zap.Logger) *AttachmentController {
	return &AttachmentController{attachmentService: attachmentService, logger: logger}
}

// Upload stores the multipart field "file" against the owner in the path.
func (c *AttachmentController) Upload(kind entities.OwnerKind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		actor, err := actorFrom(ctx)
		if err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
		ownerID, err := idParam(ctx, "id", string(kind))
		if err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}

		header, err := ctx.FormFile("file")
		if err != nil {
			return utils.ErrorResponse(ctx,
				apperrors.NewHttpError(http.StatusBadRequest, "multipart field 'file' is required", apperrors.ErrBadRequest, nil),
				c.logger,
			)
		}
		file, err := header.Open()
		if err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
		defer file.Close()

		attachment, err := c.attachmentService.Upload(ctx.Request().Context(), actor, kind, ownerID, file, header.Filename, header.Size)
		if err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
		return api.SuccessOne(ctx, http.StatusCreated, "file uploaded", attachment)
	}
}

func (c *AttachmentController) List(kind entities.OwnerKind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		actor, err := actorFrom(ctx)
		if err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
		ownerID, err := idParam(ctx, "id", string(kind))
		if err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}

		attachments, err := c.attachmentService.List(ctx.Request().Context(), actor, kind, ownerID)
		if err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
		if attachments == nil {
			attachments = []entities.Attachment{}
		}
		return api.SuccessOne(ctx, http.StatusOK, "attachments fetched", attachments)
	}
}

func (c *AttachmentController) URL(ctx echo.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := idParam(ctx, "id", "attachment")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	url, err := c.attachmentService.URL(ctx.Request().Context(), actor, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "attachment url", dto.AttachmentURLDTO{URL: url})
}

func (c *AttachmentController) Delete(ctx echo.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := idParam(ctx, "id", "attachment")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.attachmentService.Delete(ctx.Request().Context(), actor, id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return api.NoContent(ctx, "attachment deleted")
}
