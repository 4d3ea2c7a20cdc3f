package internal

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one invalid input.
type FieldError struct {
	// Location is the path to the value, starting with its source:
	// ["body", "email"], ["query", "page"], ["path", "id"].
	Location []string `json:"location"`
	Message  string   `json:"message"`
	Type     string   `json:"type"`
}

// ValidationError aggregates every invalid input of a request.
// It renders as 422 Unprocessable Entity.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// NewValidationError creates a ValidationError from field errors.
func NewValidationError(errs ...FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = strings.Join(fe.Location, ".") + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) StatusCode() int { return http.StatusUnprocessableEntity }

// Add appends a field error.
func (e *ValidationError) Add(location []string, typ, message string) {
	e.Errors = append(e.Errors, FieldError{Location: location, Type: typ, Message: message})
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AsValidationError extracts the ValidationError from an error if present.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

var (
	structValidator *validator.Validate
	validatorOnce   sync.Once
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(fieldName)
		structValidator = v
	})
	return structValidator
}

// RegisterValidation adds a custom validation tag for request models.
// Call it during bootstrap, before requests are served.
func RegisterValidation(tag string, fn validator.Func) error {
	return getValidator().RegisterValidation(tag, fn)
}

// fieldName is the client-facing name of a struct field.
func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "query", "form", "param"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// validateStruct validates v and returns nil or a *ValidationError with
// locations prefixed by source.
func validateStruct(source string, v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %s: %w", source, err)
	}

	ve := &ValidationError{}
	for _, fe := range fieldErrs {
		ve.Add(fieldLocation(source, fe.Namespace()), fe.Tag(), validationMessage(fe))
	}
	return ve
}

// fieldLocation turns "CreateUser.address.city" into [source, address, city].
func fieldLocation(source, namespace string) []string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return append([]string{source}, parts...)
}

func validationMessage(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required", "required_if", "required_unless", "required_with", "required_without":
		return "field required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "uuid", "uuid4", "uuid7":
		return "must be a valid UUID"
	case "min":
		if isLengthKind(fe.Kind()) {
			return fmt.Sprintf("must have at least %s characters or items", param)
		}
		return "must be at least " + param
	case "max":
		if isLengthKind(fe.Kind()) {
			return fmt.Sprintf("must have at most %s characters or items", param)
		}
		return "must be at most " + param
	case "len":
		return "must have length " + param
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "gt":
		return "must be greater than " + param
	case "lt":
		return "must be less than " + param
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(param, " ", ", ")
	case "alphanum":
		return "must contain only letters and digits"
	}
	if param != "" {
		return fmt.Sprintf("failed %s=%s validation", fe.Tag(), param)
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

func isLengthKind(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return true
	}
	return false
}
