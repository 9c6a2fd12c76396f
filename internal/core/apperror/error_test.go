package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		kind       Kind
		httpStatus int
	}{
		{"validation", NewValidation("bad"), KindValidation, http.StatusBadRequest},
		{"not found", NewNotFound("spare", 10), KindNotFound, http.StatusNotFound},
		{"forbidden", NewForbidden("other service center"), KindAuthorization, http.StatusForbidden},
		{"conflict", NewStateConflict("return_request", "x", "verified", "verify"), KindStateConflict, http.StatusConflict},
		{"read only", NewReadOnly("return_request", "x", "reopened"), KindStateConflict, http.StatusConflict},
		{"capacity", NewInsufficientStock(10, "technician:7", 5, 0, 4, 0), KindCapacity, http.StatusUnprocessableEntity},
		{"persistence", NewPersistence(errors.New("conn reset")), KindPersistence, http.StatusInternalServerError},
		{"internal", NewInternal(errors.New("boom")), KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind())
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
			assert.Equal(t, tt.kind, KindOf(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil))

	original := NewValidation("items must not be empty")
	assert.Same(t, original, Wrap(original))

	raw := errors.New("deadlock detected")
	wrapped := Wrap(raw)
	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeDatabase, appErr.Code)
	assert.ErrorIs(t, wrapped, raw)
}

func TestPredicates(t *testing.T) {
	readOnly := NewReadOnly("return_request", "r1", "verified")
	assert.True(t, IsReadOnly(readOnly))
	assert.True(t, IsStateConflict(readOnly))
	assert.False(t, IsNotFound(readOnly))

	stock := NewInsufficientStock(10, "technician:7", 4, 0, 3, 0)
	assert.True(t, IsInsufficientStock(stock))
	assert.Equal(t, int64(3), stock.Details["available_good"])

	assert.False(t, IsValidation(errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("plain")))
}

func TestWithDetail(t *testing.T) {
	err := NewValidation("bad quantity").WithDetail("item_index", 2)
	assert.Equal(t, 2, err.Details["item_index"])
	assert.Contains(t, err.Error(), CodeValidation)
}
