package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clothes-shop/internal/domain"
	"clothes-shop/internal/repository"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// Every error response carries code, message and an RFC3339 timestamp
func TestProperty_ErrorsHaveConsistentStructure(t *testing.T) {
	properties := gopter.NewProperties(nil)

	standardCodes := []int{
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusConflict,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusServiceUnavailable,
	}

	properties.Property("all error responses have consistent structure", prop.ForAll(
		func(message string, index int) bool {
			statusCode := standardCodes[index]

			w := httptest.NewRecorder()
			RespondWithError(w, statusCode, message)

			if w.Code != statusCode || w.Header().Get("Content-Type") != "application/json" {
				return false
			}

			var response ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				return false
			}

			if response.Error.Code != http.StatusText(statusCode) || response.Error.Message != message {
				return false
			}
			_, err := time.Parse(time.RFC3339, response.Error.Timestamp)
			return err == nil
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
		gen.IntRange(0, len(standardCodes)-1),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewError(domain.KindValidation, "quantity must be at least 1"), http.StatusBadRequest},
		{"unauthenticated", domain.NewError(domain.KindUnauthenticated, "authentication required"), http.StatusUnauthorized},
		{"forbidden", domain.NewError(domain.KindForbidden, "order belongs to another user"), http.StatusForbidden},
		{"not found", repository.ErrProductNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("failed to lock cart: %w", repository.ErrCartNotFound), http.StatusNotFound},
		{"insufficient stock", domain.NewError(domain.KindInsufficientStock, "insufficient stock"), http.StatusConflict},
		{"invalid transition", domain.NewError(domain.KindInvalidTransition, "cannot cancel"), http.StatusConflict},
		{"conflict", repository.ErrAlreadyRated, http.StatusConflict},
		{"unknown payment method", repository.ErrPaymentMethodNotFound, http.StatusBadRequest},
		{"transaction aborted", repository.ErrTxAborted, http.StatusServiceUnavailable},
		{"untyped", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusForError(tt.err))
		})
	}
}

func TestRespondWithDomainError_ExposesTypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithDomainError(w, domain.Errorf(domain.KindInsufficientStock, "insufficient stock for %s: %d available", "Linen Shirt", 2), zap.NewNop())

	assert.Equal(t, http.StatusConflict, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "insufficient stock for Linen Shirt: 2 available", response.Error.Message)
	assert.Equal(t, "insufficient_stock", response.Error.Details["kind"])
}

func TestRespondWithDomainError_HidesInternalErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	w := httptest.NewRecorder()

	RespondWithDomainError(w, fmt.Errorf("failed to scan product: connection reset"), zap.New(core))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Request failed", logs.All()[0].Message)
}

func TestRespondWithDomainError_TransactionAbortedIsRetryable(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithDomainError(w, repository.ErrTxAborted, zap.NewNop())

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRespondWithValidationErrors(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithValidationErrors(w, []ValidationError{{Field: "items[0].quantity", Message: "Value must be greater than or equal to 1"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "validation failed", response.Error.Message)
	assert.Contains(t, response.Error.Details, "validation_errors")
}

func TestErrorHandlingMiddleware_RecoversPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	handler := ErrorHandlingMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil cart")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "/api/cart", logs.All()[0].ContextMap()["path"])
}

func TestRespondWithJSON(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithJSON(w, http.StatusCreated, map[string]string{"tracking_code": "0123456789"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"tracking_code":"0123456789"}`, w.Body.String())
}
