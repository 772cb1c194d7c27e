package utils

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "crm-system/pkg/errors"
)

type ErrorBody struct {
	Status  bool        `json:"status"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

var kindStatus = map[error]int{
	apperrors.ErrNotFound:          http.StatusNotFound,
	apperrors.ErrForbidden:         http.StatusForbidden,
	apperrors.ErrInvalidTransition: http.StatusBadRequest,
	apperrors.ErrValidation:        http.StatusBadRequest,
	apperrors.ErrBadRequest:        http.StatusBadRequest,
	apperrors.ErrConflict:          http.StatusConflict,
	apperrors.ErrUserInactive:      http.StatusForbidden,
	apperrors.ErrTooManyAttempts:   http.StatusTooManyRequests,
}

// ErrorResponse maps err onto a status code and writes the error envelope.
func ErrorResponse(c echo.Context, err error, logger *zap.Logger) error {
	code := http.StatusInternalServerError
	message := "internal server error"
	var details interface{}

	var httpErr *apperrors.HttpError
	var echoErr *echo.HTTPError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.As(err, &httpErr):
		code = httpErr.Code
		message = httpErr.Message
		details = httpErr.Details
	case errors.As(err, &validationErrs):
		code = http.StatusBadRequest
		message = "validation failed"
		details = ValidationDetails(validationErrs)
		err = apperrors.ErrValidation
	case errors.As(err, &echoErr):
		code = echoErr.Code
		if m, ok := echoErr.Message.(string); ok {
			message = m
		}
	default:
		for kind, status := range kindStatus {
			if errors.Is(err, kind) {
				code = status
				message = err.Error()
				break
			}
		}
		if code == http.StatusInternalServerError && apperrors.Kind(err) == "UNAUTHORIZED" {
			code = http.StatusUnauthorized
			message = err.Error()
		}
	}

	if logger != nil {
		if code >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
			)
		} else {
			logger.Debug("request rejected", zap.Int("status", code), zap.Error(err))
		}
	}

	return c.JSON(code, ErrorBody{
		Status:  false,
		Code:    apperrors.Kind(err),
		Message: message,
		Details: details,
	})
}

// ValidationDetails flattens validator errors to field -> failed rule.
func ValidationDetails(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
