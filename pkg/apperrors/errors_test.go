package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"InvalidItem", InvalidItem("item %s is not part of this kill", "sword"), http.StatusUnprocessableEntity},
		{"InsufficientFunds", InsufficientFunds("insufficient diamonds"), http.StatusUnprocessableEntity},
		{"InvalidState", InvalidState("application is approved"), http.StatusConflict},
		{"Validation", Validation("amount must be positive"), http.StatusBadRequest},
		{"Conflict", Conflict("bid must exceed 100"), http.StatusConflict},
		{"NotFound", NotFound("auction not found"), http.StatusNotFound},
		{"Forbidden", Forbidden("missing capability"), http.StatusForbidden},
		{"Unauthenticated", Unauthenticated("authentication required"), http.StatusUnauthorized},
		{"Wrapped", fmt.Errorf("settle auction: %w", Conflict("already settled")), http.StatusConflict},
		{"Unclassified", errors.New("connection reset by peer"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))

			var status huma.StatusError
			require.True(t, errors.As(ToHuma(tt.err), &status))
			assert.Equal(t, tt.want, status.GetStatus())
		})
	}
}

func TestToHumaHidesUnclassifiedCause(t *testing.T) {
	err := ToHuma(fmt.Errorf("mongo: %w", errors.New("auth failed for user loot@10.0.0.4")))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "10.0.0.4")
	assert.Contains(t, err.Error(), "internal server error")

	assert.NoError(t, ToHuma(nil))
	assert.Contains(t, ToHuma(Conflict("item %q is assigned", "ring")).Error(), `item "ring" is assigned`)
}

func TestSentinels(t *testing.T) {
	err := fmt.Errorf("approve: %w", InvalidState("application is %s", "withdrawn"))
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestFromValidator(t *testing.T) {
	type request struct {
		Name  string `validate:"required"`
		Price int64  `validate:"gte=1"`
	}
	err := FromValidator(validator.New().Struct(request{}))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "Name is required")
	assert.Contains(t, err.Error(), "Price must be >= 1")

	err = FromValidator(errors.New("decode body"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}
