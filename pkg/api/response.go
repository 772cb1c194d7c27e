package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"crm-system/pkg/types"
)

type Response[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Body    T      `json:"body,omitempty"`
}

type ListBody[T any] struct {
	List       []T               `json:"list"`
	Pagination *types.Pagination `json:"pagination"`
}

// SuccessOne wraps a single object in the envelope.
func SuccessOne[T any](c echo.Context, code int, message string, data T) error {
	return c.JSON(code, Response[T]{
		Status:  true,
		Message: message,
		Body:    data,
	})
}

func SuccessList[T any](c echo.Context, message string, list []T, total, page, limit uint64) error {
	if list == nil {
		list = make([]T, 0)
	}
	pagination := types.NewPagination(total, page, limit)

	return c.JSON(http.StatusOK, Response[ListBody[T]]{
		Status:  true,
		Message: message,
		Body: ListBody[T]{
			List:       list,
			Pagination: &pagination,
		},
	})
}

func NoContent(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, Response[any]{Status: true, Message: message})
}
