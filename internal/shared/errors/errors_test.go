package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestConstructors_MapToHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
		wantCode int
	}{
		{"validation", NewValidationError("bad cycle"), ErrorTypeValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("plan not found"), ErrorTypeNotFound, http.StatusNotFound},
		{"conflict", NewConflictError("already active"), ErrorTypeConflict, http.StatusConflict},
		{"forbidden", NewForbiddenError("not owner"), ErrorTypeForbidden, http.StatusForbidden},
		{"unauthorized", NewUnauthorizedError("no token"), ErrorTypeUnauthorized, http.StatusUnauthorized},
		{"internal", NewInternalError("db down"), ErrorTypeInternal, http.StatusInternalServerError},
		{"bad request", NewBadRequestError("malformed"), ErrorTypeBadRequest, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantCode, tt.err.Code)
		})
	}
}

func TestAppError_ErrorString(t *testing.T) {
	assert.Equal(t, "conflict: already active", NewConflictError("already active").Error())
	assert.Equal(t, "conflict: already active (plan=Pro)", NewConflictError("already active", "plan=Pro").Error())
}

func TestTypeHelpers_UnwrapWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("subscribe: %w", NewConflictError("already active"))

	assert.True(t, IsAppError(wrapped))
	assert.True(t, IsConflictError(wrapped))
	assert.False(t, IsNotFoundError(wrapped))
	assert.False(t, IsValidationError(stderrors.New("plain")))
	assert.Nil(t, GetAppError(stderrors.New("plain")))
	assert.True(t, IsForbiddenError(NewForbiddenError("x")))
}

func TestIsDuplicateError(t *testing.T) {
	assert.False(t, IsDuplicateError(nil))
	assert.True(t, IsDuplicateError(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateError(stderrors.New("Error 1062: Duplicate entry '7' for key 'uk_subscriptions_active_user'")))
	assert.True(t, IsDuplicateError(stderrors.New(`ERROR: duplicate key value violates unique constraint "uk_promo_code"`)))
	assert.True(t, IsDuplicateError(stderrors.New("UNIQUE constraint failed: subscriptions.active_user_key")))
	assert.False(t, IsDuplicateError(stderrors.New("connection refused")))
}
