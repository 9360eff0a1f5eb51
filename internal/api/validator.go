package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"plantcare/internal/types"
)

// Validator wraps go-playground/validator and converts its failures into
// client-facing validation errors with per-field details.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with JSON tag names reported in errors.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// ValidateStruct validates s and returns an AppError describing every failed
// field, or nil when s is valid.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed", err)
	}

	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = "failed on " + fe.Tag()
	}
	return &types.AppError{
		Code:    types.ErrCodeValidationMissingField,
		Message: "request validation failed",
		Details: details,
	}
}
