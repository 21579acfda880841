package core

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"hubwatch/internal/types"
)

// Validator wraps go-playground/validator with the hub-specific tags.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator and registers the "iata" and "tzname" tags.
func NewValidator(logger *slog.Logger) (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := types.RegisterValidators(v); err != nil {
		return nil, err
	}
	return &Validator{validate: v, logger: logger}, nil
}

// ValidateStruct checks s and converts the first failing field into an
// AppError whose code follows the failing tag.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		v.logger.Error("struct validation failed unexpectedly", "error", err)
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	fe := fieldErrs[0]
	details := map[string]any{"field": fe.Field(), "rule": fe.Tag()}
	switch fe.Tag() {
	case "required":
		return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			fmt.Sprintf("%s is required", fe.Field()), err, details)
	case "iata":
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidHub,
			fmt.Sprintf("%q is not a three-letter airport code", fe.Value()), err, details)
	case "datetime":
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidDate,
			fmt.Sprintf("%q is not a YYYY-MM-DD date", fe.Value()), err, details)
	default:
		return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()), err, details)
	}
}
