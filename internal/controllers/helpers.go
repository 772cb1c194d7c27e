package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"crm-system/internal/authz"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/utils"
)

const maxJSONBody = 1 << 20

func actorFrom(ctx echo.Context) (authz.Actor, error) {
	return utils.GetActorFromCtx(ctx.Request().Context())
}

// idParam returns the path parameter as a UUID string. Malformed ids cannot
// exist, so they are reported as not found.
func idParam(ctx echo.Context, name, entity string) (string, error) {
	raw := ctx.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.NewNotFound("%s %s not found", entity, raw)
	}
	return id.String(), nil
}

func bindJSON(ctx echo.Context, dst interface{}) error {
	if err := ctx.Bind(dst); err != nil {
		return apperrors.NewHttpError(http.StatusBadRequest, "invalid JSON body", apperrors.ErrBadRequest, nil)
	}
	return ctx.Validate(dst)
}

// bindPatch decodes a partial update and reports which top-level keys were sent.
func bindPatch(ctx echo.Context, dst interface{}) (map[string]bool, error) {
	raw, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxJSONBody))
	if err != nil {
		return nil, apperrors.NewHttpError(http.StatusBadRequest, "could not read body", apperrors.ErrBadRequest, nil)
	}
	fields, err := utils.SentFields(raw)
	if err != nil {
		return nil, apperrors.NewHttpError(http.StatusBadRequest, "invalid JSON body", apperrors.ErrBadRequest, nil)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return nil, apperrors.NewHttpError(http.StatusBadRequest, "invalid JSON body", err, nil)
	}
	if err := ctx.Validate(dst); err != nil {
		return nil, err
	}
	return fields, nil
}
