package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", Unauthenticated("user must be logged in"), http.StatusUnauthorized},
		{"forbidden", Forbidden("you do not have permission"), http.StatusForbidden},
		{"not found", NotFound("no such claim"), http.StatusNotFound},
		{"validation", Invalid("summary", "summary too short"), http.StatusBadRequest},
		{"conflict", Conflict("email already in use"), http.StatusConflict},
		{"wrapped", fmt.Errorf("edit claim: %w", NotFound("no such claim")), http.StatusNotFound},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessageHidesInternalErrors(t *testing.T) {
	assert.Equal(t, "internal error", PublicMessage(errors.New("pq: password authentication failed")))
	assert.Equal(t, "summary too short", PublicMessage(Invalid("summary", "summary too short")))
	assert.Equal(t, "no such claim", PublicMessage(NotFound("no such claim")))
}

func TestPublicMessageIgnoresWrapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("guard: %w", Forbidden("you do not have permission")), "you do not have permission"},
		{fmt.Errorf("login: %w", Unauthenticated("invalid credentials")), "invalid credentials"},
		{fmt.Errorf("get claim: %w", NotFound("no such claim")), "no such claim"},
		{fmt.Errorf("update claim: %w", Conflict("claim was modified")), "claim was modified"},
		{fmt.Errorf("setup: %w", Invalid("account", "user already completed")), "user already completed"},
		{fmt.Errorf("db: %w", errors.New("connection reset")), "internal error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PublicMessage(tt.err))
	}
}

func TestFromValidationPicksFirstSortedField(t *testing.T) {
	errs := validation.Errors{
		"password": errors.New("the length must be between 8 and 72"),
		"email":    errors.New("must be a valid email address"),
		"name":     nil,
	}
	err := FromValidation(errs)
	require.Error(t, err)

	var v *ValidationError
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "email", v.Field)
	assert.Equal(t, "must be a valid email address", v.Message)
}

func TestFromValidationPlainError(t *testing.T) {
	err := FromValidation(errors.New("cannot be blank"))
	var v *ValidationError
	require.True(t, errors.As(err, &v))
	assert.Empty(t, v.Field)
	assert.Nil(t, FromValidation(nil))
	assert.Nil(t, FromValidation(validation.Errors{"name": nil}))
}
