package middleware

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpos/settlement/internal/interfaces/http/dto"
)

type thresholdForm struct {
	ProductID   string  `json:"product_id" binding:"required,uuid"`
	MinQuantity float64 `json:"min_quantity" binding:"gte=0"`
}

func TestFormatValidationErrors(t *testing.T) {
	SetupValidator()

	err := binding.Validator.ValidateStruct(thresholdForm{
		ProductID:   "not-a-uuid",
		MinQuantity: -1,
	})
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))

	resp := FormatValidationErrors(err, "req-1")
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)

	details := resp.Data.(map[string]any)["validation_errors"].([]dto.ValidationDetail)
	require.Len(t, details, 2)

	// Field names come from json tags, not Go struct field names
	assert.Equal(t, "product_id", details[0].Field)
	assert.Equal(t, "Must be a valid UUID", details[0].Message)
	assert.Equal(t, "min_quantity", details[1].Field)
	assert.Equal(t, "Must be at least 0", details[1].Message)
}

func TestFormatValidationErrorsNonValidatorError(t *testing.T) {
	resp := FormatValidationErrors(errors.New("unexpected EOF"), "req-2")
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Data.(map[string]any)["validation_errors"])
}
