package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"sunpump/internal/i18n"
	"sunpump/internal/types"
)

// Validator wraps go-playground/validator with the service's custom tags
// and maps failures onto validation AppErrors.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator registers the custom tags:
//
//	lang   a key accepted by i18n.ParseLanguage
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	if err := v.RegisterValidation("lang", validateLanguage); err != nil {
		// Registration only fails on an empty tag or nil func.
		panic(err)
	}
	return &Validator{validate: v, logger: logger}
}

// ValidateStruct checks s and returns nil or a *types.AppError whose details
// map each offending field to the rule it broke.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		if v.logger != nil {
			v.logger.Error("validator misuse", "error", err)
		}
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation could not be performed", err)
	}

	details := make(map[string]any, len(fieldErrs))
	code := types.ErrCodeValidationInvalidParam
	for _, fe := range fieldErrs {
		details[fe.Field()] = fe.Tag()
		switch fe.Tag() {
		case "required":
			code = types.ErrCodeValidationMissingField
		case "lang":
			code = types.ErrCodeValidationInvalidLanguage
		}
	}
	return types.NewAppErrorWithDetails(code, "request validation failed", err, details)
}

// fieldName reports query or json tag names so details match what the
// client sent.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"query", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func validateLanguage(fl validator.FieldLevel) bool {
	_, err := i18n.ParseLanguage(fl.Field().String())
	return err == nil
}
