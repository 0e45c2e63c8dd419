package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_CarriesFieldAndValue(t *testing.T) {
	err := NewValidationError("band_score", "must be a multiple of 0.5 between 0 and 9", 6.3)

	assert.Equal(t, "band_score", err.Field)
	assert.Equal(t, 6.3, err.Value)
	assert.Equal(t, "validation error on field 'band_score': must be a multiple of 0.5 between 0 and 9", err.Error())
}

func TestValidationErrors_MessageByCount(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "validation failed", errs.Error())

	errs = append(errs, *NewValidationError("booking_id", "is required", nil))
	assert.Equal(t, "validation failed: booking_id is required", errs.Error())

	errs = append(errs, *NewValidationError("task1_text", "is required", nil))
	assert.Equal(t, "validation failed: 2 field errors", errs.Error())
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("exam_type", "must be one of ielts, toefl, general", "oneof", "klingon")

	assert.Equal(t, "oneof", err.Rule)
	assert.Equal(t, "exam_type", err.Field)
	assert.Equal(t, "klingon", err.Value)
}
