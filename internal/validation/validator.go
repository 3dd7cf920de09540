// Package validation wraps go-playground/validator with the RSVP-specific
// tags used by request payloads:
//
//   - allergen: value belongs to the closed allergen set
//   - attendance_choice: value is ceremony, lunch or decline
//
// Field names in errors use the json tag so they match the wire payload.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/wedding-rsvp/backend/internal/attendance"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ErrInvalidAllergen reports a value outside the closed allergen set.
var ErrInvalidAllergen = errors.New("validation: unknown allergen")

var allergens = []string{
	"glutine",
	"lattosio",
	"uova",
	"arachidi",
	"frutta_a_guscio",
	"soia",
	"sesamo",
	"pesce",
	"crostacei",
	"molluschi",
	"senape",
	"sedano",
	"solfiti",
}

var allergenSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(allergens))
	for _, value := range allergens {
		set[value] = struct{}{}
	}
	return set
}()

// Allergens returns the closed allergen set in display order.
func Allergens() []string {
	return append([]string(nil), allergens...)
}

// IsAllergen reports whether value belongs to the closed allergen set.
func IsAllergen(value string) bool {
	_, ok := allergenSet[value]
	return ok
}

// NormalizeAllergens checks every entry against the closed set and drops
// duplicates, keeping the first occurrence.
func NormalizeAllergens(values []string) ([]string, error) {
	seen := make(map[string]struct{}, len(values))
	normalized := make([]string, 0, len(values))
	for _, value := range values {
		if !IsAllergen(value) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAllergen, value)
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		normalized = append(normalized, value)
	}
	return normalized, nil
}

// FieldError is one failed constraint.
type FieldError struct {
	field   string
	tag     string
	param   string
	message string
}

// Field returns the json name of the failing field.
func (e FieldError) Field() string {
	return e.field
}

// Tag returns the failing validation tag.
func (e FieldError) Tag() string {
	return e.tag
}

// Param returns the tag parameter, if any.
func (e FieldError) Param() string {
	return e.param
}

func (e FieldError) Error() string {
	return e.message
}

// RequestValidationError collects every failed constraint of one payload.
type RequestValidationError struct {
	errors []FieldError
}

// Errors returns the individual field failures.
func (ve *RequestValidationError) Errors() []FieldError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(ve.errors))
	for _, err := range ve.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Details renders the failures as a field to message map for responses.
func (ve *RequestValidationError) Details() map[string]string {
	details := make(map[string]string, len(ve.errors))
	for _, err := range ve.errors {
		if _, exists := details[err.field]; !exists {
			details[err.field] = err.message
		}
	}
	return details
}

// GetValidator returns the shared validator with the custom tags registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
		// Registration only fails on an empty tag or nil function.
		_ = validate.RegisterValidation("allergen", validateAllergen)
		_ = validate.RegisterValidation("attendance_choice", validateAttendanceChoice)
	})
	return validate
}

// ValidateStruct validates s and returns a *RequestValidationError on failure.
func ValidateStruct(s any) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{errors: []FieldError{{
			field:   "unknown",
			tag:     "unknown",
			message: err.Error(),
		}}}
	}

	fieldErrors := make([]FieldError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		fieldErrors[i] = FieldError{
			field:   fieldErr.Field(),
			tag:     fieldErr.Tag(),
			param:   fieldErr.Param(),
			message: translateError(fieldErr),
		}
	}
	return &RequestValidationError{errors: fieldErrors}
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	default:
		return name
	}
}

func validateAllergen(fl validator.FieldLevel) bool {
	return IsAllergen(fl.Field().String())
}

func validateAttendanceChoice(fl validator.FieldLevel) bool {
	choice, err := attendance.ParseChoice(fl.Field().String())
	return err == nil && choice.Valid()
}

var errorMessageTemplates = map[string]string{
	"required":          "%s is required",
	"allergen":          "%s must be a known allergen",
	"attendance_choice": "%s must be one of: ceremony, lunch, decline",
}

var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
}

func translateError(fe validator.FieldError) string {
	if template, ok := errorMessageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(template, fe.Field())
	}
	if template, ok := errorMessageWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(template, fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
