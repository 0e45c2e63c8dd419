package validator

import (
	"math"
	"reflect"
	"strings"

	"github.com/examport/attempt-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps struct-tag validation plus the domain's custom rules.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new validator instance with all custom rules registered.
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{structValidator: structValidator}
}

// Validate validates struct tags, returning the shared ValidationErrors type
// on failure.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if ve := ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("section_type", validateSectionType)
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("band_score", validateBandScore)
	validate.RegisterValidation("user_role", validateUserRole)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validation functions

func validateSectionType(fl validator.FieldLevel) bool {
	validTypes := []models.SectionType{
		models.SectionReading,
		models.SectionListening,
		models.SectionWriting,
		models.SectionSpeaking,
		models.SectionGrammar,
		models.SectionVocabulary,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func validateQuestionType(fl validator.FieldLevel) bool {
	validTypes := []models.QuestionType{
		models.QuestionTrueFalse,
		models.QuestionSingleChoice,
		models.QuestionShortText,
		models.QuestionGapFill,
		models.QuestionFreeResponse,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

// Bands are multiples of 0.5 in [0, 9].
func validateBandScore(fl validator.FieldLevel) bool {
	value := fl.Field().Float()
	if value < 0 || value > 9 {
		return false
	}
	doubled := value * 2
	return doubled == math.Trunc(doubled)
}

func validateUserRole(fl validator.FieldLevel) bool {
	validRoles := []models.UserRole{
		models.RoleStudent,
		models.RoleTeacher,
		models.RoleAdmin,
	}

	value := fl.Field().String()
	for _, validRole := range validRoles {
		if string(validRole) == value {
			return true
		}
	}
	return false
}
