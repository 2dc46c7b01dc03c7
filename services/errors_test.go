package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "resource not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "resource not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeNotFound,
				Message: "rule not found",
				Err:     errors.New("db error"),
			},
			wantMsg: "not_found: rule not found (db error)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "invalid input",
				Err:     nil,
			},
			wantMsg: "validation: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeInternal, "internal error", baseErr)

	assert.Equal(t, baseErr, errors.Unwrap(domainErr))
}

func TestDomainError_Is(t *testing.T) {
	err := NewDomainError(ErrorTypeCredit, "balance too low", nil)

	assert.True(t, errors.Is(err, ErrInsufficientCredit))
	assert.False(t, errors.Is(err, ErrRuleNotFound))
}

func TestErrorTypeCheckers(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		checker func(error) bool
		want    bool
	}{
		{"not found", ErrRuleNotFound, IsNotFoundError, true},
		{"validation", ErrEmptyCommandText, IsValidationError, true},
		{"unauthorized", ErrInvalidAPIKey, IsUnauthorizedError, true},
		{"forbidden", ErrAdminRequired, IsForbiddenError, true},
		{"credit", ErrInsufficientCredit, IsCreditError, true},
		{"conflict", ErrDuplicateUsername, IsConflictError, true},
		{"internal", ErrTransactionFailed, IsInternalError, true},
		{"mismatched type", ErrRuleNotFound, IsValidationError, false},
		{"plain error", errors.New("plain"), IsNotFoundError, false},
		{"nil", nil, IsInternalError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.checker(tt.err))
		})
	}
}

func TestCheckersSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("while settling: %w", ErrInsufficientCredit)

	assert.True(t, IsCreditError(wrapped))
	assert.Equal(t, ErrorTypeCredit, GetErrorType(wrapped))
}

func TestWrapInternal(t *testing.T) {
	baseErr := errors.New("connection refused")
	err := WrapInternal("failed to query", baseErr)

	assert.True(t, IsInternalError(err))
	assert.True(t, errors.Is(err, baseErr))
}

func TestWithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "bad pattern", nil).
		WithDetail("pattern", "([")

	details := GetErrorDetails(err)
	assert.Equal(t, "([", details["pattern"])
}

func TestGetErrorType_NonDomainError(t *testing.T) {
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain")))
	assert.Nil(t, GetErrorDetails(errors.New("plain")))
}
