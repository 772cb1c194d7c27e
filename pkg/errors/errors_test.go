package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHttpErrorUnwrap(t *testing.T) {
	err := NewNotFound("request %s not found", "abc")
	wrapped := fmt.Errorf("load: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrForbidden))

	var httpErr *HttpError
	assert.True(t, errors.As(wrapped, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
	assert.Equal(t, "request abc not found", httpErr.Message)
}

func TestKind(t *testing.T) {
	cases := map[string]error{
		"NOT_FOUND":          NewNotFound("x"),
		"FORBIDDEN":          NewForbidden("x"),
		"INVALID_TRANSITION": NewInvalidTransition("x"),
		"VALIDATION_ERROR":   NewValidationError("x", nil),
		"CONFLICT":           NewConflict("x"),
		"UNAUTHORIZED":       ErrTokenExpired,
		"INTERNAL":           errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Kind(err), want)
	}
}

func TestInvalidTransitionIsBadRequest(t *testing.T) {
	var httpErr *HttpError
	assert.True(t, errors.As(NewInvalidTransition("same status"), &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}
