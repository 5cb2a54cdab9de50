package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid group", func(t *testing.T) {
		err := vh.ValidateStruct(&AccountGroupInput{Code: "1000", Name: "Assets", NormalBalance: "Debit"})
		assert.NoError(t, err)
	})

	t.Run("missing required fields", func(t *testing.T) {
		err := vh.ValidateStruct(&AccountGroupInput{NormalBalance: "Sideways"})
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		require.True(t, ok)
		assert.Len(t, validationErrors, 3) // code, name, normalBalance
	})

	t.Run("fields reported by json name", func(t *testing.T) {
		err := vh.ValidateStruct(&TransactionInput{
			VoucherTypeID: 1,
			Details:       []TransactionDetailInput{{DebitAmount: decimal.NewFromInt(1)}},
		})
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		require.True(t, ok)
		require.Len(t, validationErrors, 1)
		assert.Equal(t, "accountId", validationErrors[0].Field())
		assert.Equal(t, "required", validationErrors[0].Tag())
		assert.Equal(t, "details[0].accountId", fieldPath(validationErrors[0]))
	})
}

func TestSendResponse(t *testing.T) {
	w := httptest.NewRecorder()

	SendResponse(w, http.StatusCreated, "Transaction created", map[string]int{"id": 5})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, "Transaction created", response.Message)
	assert.Equal(t, map[string]any{"id": float64(5)}, response.Data)
	assert.Empty(t, response.ErrorCode)
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response Envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response.Success)
		assert.Equal(t, "Something went wrong", response.Message)
		assert.Nil(t, response.Data)
		assert.Nil(t, response.Details)
	})

	t.Run("wrapped validation errors carry details", func(t *testing.T) {
		vh := NewValidationHelper()
		validationErr := vh.ValidateStruct(&ParentAccountInput{Code: "1100"})
		require.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendCodedErrorResponse(w, "Validation failed", http.StatusBadRequest, "VALIDATION_FAILED",
			fmt.Errorf("%w: %w", ErrValidation, validationErr))

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response Envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "VALIDATION_FAILED", response.ErrorCode)
		assert.Contains(t, response.Details, "accountGroupId")
		assert.Contains(t, response.Details, "name")
		assert.NotContains(t, response.Details, "code")
	})

	t.Run("error code omitted when empty", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)

		assert.NotContains(t, w.Body.String(), "errorCode")
		assert.NotContains(t, w.Body.String(), "details")
	})
}

func TestNewValidationHelper(t *testing.T) {
	vh := NewValidationHelper()
	assert.NotNil(t, vh)
	assert.NotNil(t, vh.validator)
}
