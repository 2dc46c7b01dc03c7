package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/command-gateway/services"
	"github.com/upb/command-gateway/utils"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "not found maps to 404",
			err:            services.ErrCommandNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "not_found",
		},
		{
			name:           "validation maps to 400",
			err:            services.ErrEmptyCommandText,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "bad_request",
		},
		{
			name:           "unauthorized maps to 401",
			err:            services.ErrInvalidToken,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "unauthorized",
		},
		{
			name:           "forbidden maps to 403",
			err:            services.ErrAdminRequired,
			expectedStatus: http.StatusForbidden,
			expectedCode:   "forbidden",
		},
		{
			name:           "credit exhaustion maps to 402",
			err:            services.ErrInsufficientCredit,
			expectedStatus: http.StatusPaymentRequired,
			expectedCode:   "insufficient_credits",
		},
		{
			name:           "conflict maps to 409",
			err:            services.ErrDuplicateUsername,
			expectedStatus: http.StatusConflict,
			expectedCode:   "conflict",
		},
		{
			name:           "internal maps to 500",
			err:            services.WrapInternal("query failed", errors.New("db down")),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "internal_error",
		},
		{
			name:           "unknown errors fall back to 500",
			err:            errors.New("surprise"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response utils.ErrorResponse
			err := json.NewDecoder(w.Body).Decode(&response)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCode, response.Error)
			assert.NotEmpty(t, response.Message)
		})
	}

	t.Run("internal errors hide the underlying message", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleServiceError(w, services.WrapInternal("query failed", errors.New("password=hunter2")), logger)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "hunter2")
	})

	t.Run("nil error writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleServiceError(w, nil, logger)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestHandleValidationError(t *testing.T) {
	logger := zap.NewNop()

	t.Run("field errors are reported per field", func(t *testing.T) {
		var req SubmitCommandRequest
		err := utils.ValidateStruct(&req)
		require.Error(t, err)

		w := httptest.NewRecorder()
		HandleValidationError(w, err, logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Validation failed", response.Message)
		assert.Contains(t, response.Details, "CommandText")
	})

	t.Run("non-validator errors pass through as bad request", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleValidationError(w, errors.New("unexpected EOF"), logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unexpected EOF")
	})
}
