package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NewNotFoundError("post not found"), http.StatusNotFound},
		{"forbidden", NewForbiddenError("access denied"), http.StatusForbidden},
		{"conflict", NewConflictError("username taken"), http.StatusConflict},
		{"bad request", NewBadRequestError("title is required"), http.StatusBadRequest},
		{"unauthorized", NewUnauthorizedError("invalid credentials"), http.StatusUnauthorized},
		{"internal", NewInternalError("db down", errors.New("dial tcp")), http.StatusInternalServerError},
		{"wrapped sentinel", fmt.Errorf("load post 7: %w", ErrNotFound), http.StatusNotFound},
		{"wrapped app error", fmt.Errorf("handler: %w", NewForbiddenError("nope")), http.StatusForbidden},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestAppError_Is(t *testing.T) {
	assert.ErrorIs(t, NewNotFoundError("x"), ErrNotFound)
	assert.ErrorIs(t, NewForbiddenError("x"), ErrForbidden)
	assert.ErrorIs(t, NewConflictError("x"), ErrAlreadyExists)
	assert.NotErrorIs(t, NewForbiddenError("x"), ErrNotFound)

	cause := errors.New("disk full")
	internal := NewInternalError("save failed", cause)
	assert.ErrorIs(t, internal, cause)
	assert.ErrorIs(t, internal, ErrInternalError)
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "post not found", PublicMessage(NewNotFoundError("post not found")))
	assert.Equal(t, "save failed", PublicMessage(NewInternalError("save failed", errors.New("secret dsn"))))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("secret dsn")))
}
