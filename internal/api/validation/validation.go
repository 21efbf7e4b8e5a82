// Package validation decodes and validates request input.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"

	"github.com/formbricks/popchoice/internal/api/response"
)

// ErrUnsupportedMediaType is returned by DecodeBody for content types other than JSON and forms.
var ErrUnsupportedMediaType = errors.New("content type must be application/json or application/x-www-form-urlencoded")

var (
	// validate and decoder are safe for concurrent use once init has finished registering.
	// Do NOT register anything on them after init.
	validate *validator.Validate
	decoder  *form.Decoder
)

func init() {
	validate = validator.New()
	decoder = form.NewDecoder()

	// Report the wire name (json tag) rather than the Go field name.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}

		return name
	})

	if err := validate.RegisterValidation("no_null_bytes", validateNoNullBytes); err != nil {
		slog.Error("Failed to register no_null_bytes validator", "error", err)
	}
}

// ValidateStruct validates s and returns a readable error listing every failed field.
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationErrors(err)
	}

	return nil
}

type fieldErrors struct {
	cause    validator.ValidationErrors
	messages []string
}

func (e *fieldErrors) Error() string {
	return "validation failed: " + strings.Join(e.messages, "; ")
}

func (e *fieldErrors) Unwrap() error {
	return e.cause
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		messages = append(messages, formatFieldError(fieldError))
	}

	return &fieldErrors{cause: validationErrors, messages: messages}
}

func formatFieldError(fieldError validator.FieldError) string {
	field := fieldError.Field()

	switch fieldError.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fieldError.Param())
	case "no_null_bytes":
		return field + " must not contain NULL bytes"
	default:
		return field + " is invalid"
	}
}

// GetValidationErrorDetails extracts field-level details for a problem response.
func GetValidationErrorDetails(err error) []response.ErrorDetail {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	details := make([]response.ErrorDetail, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		details = append(details, response.ErrorDetail{
			Location: fieldError.Field(),
			Message:  formatFieldError(fieldError),
		})
	}

	return details
}

// RespondValidationError writes a 400 problem response with per-field details.
func RespondValidationError(w http.ResponseWriter, err error) {
	response.RespondProblem(w, response.ProblemDetails{
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: err.Error(),
		Errors: GetValidationErrorDetails(err),
	})
}

// DecodeJSON decodes a JSON body into dst, rejecting unknown fields. An empty body leaves dst unchanged.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", err)
	}

	return nil
}

// DecodeForm decodes an application/x-www-form-urlencoded body into dst using `form` tags.
func DecodeForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("invalid form body: %w", err)
	}

	if err := decoder.Decode(dst, r.PostForm); err != nil {
		return fmt.Errorf("invalid form body: %w", err)
	}

	return nil
}

// DecodeBody decodes JSON or form bodies based on Content-Type. A missing Content-Type is read as JSON.
func DecodeBody(r *http.Request, dst any) error {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return DecodeJSON(r, dst)
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ErrUnsupportedMediaType
	}

	switch mediaType {
	case "application/json":
		return DecodeJSON(r, dst)
	case "application/x-www-form-urlencoded":
		return DecodeForm(r, dst)
	default:
		return ErrUnsupportedMediaType
	}
}

// DecodeAndValidate decodes the body into dst and validates it.
func DecodeAndValidate(r *http.Request, dst any) error {
	if err := DecodeBody(r, dst); err != nil {
		return err
	}

	return ValidateStruct(dst)
}

// IsValidationError reports whether err came from ValidateStruct.
func IsValidationError(err error) bool {
	var fe *fieldErrors

	return errors.As(err, &fe)
}

// validateNoNullBytes checks that a string (or *string) field has no NULL bytes.
func validateNoNullBytes(fl validator.FieldLevel) bool {
	field := fl.Field()

	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return true
		}

		field = field.Elem()
	}

	if field.Kind() != reflect.String {
		return true
	}

	return !strings.Contains(field.String(), "\x00")
}
