package dto

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Request decoding failures. Handlers map ErrValidation to 400 with field
// details and ErrBinding to a plain 400.
var (
	ErrValidation = errors.New("validation failed")
	ErrBinding    = errors.New("binding failed")
)

// requestValidator reports fields by their JSON names and knows "notempty",
// which rejects whitespace-only strings.
var requestValidator = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	if err := v.RegisterValidation("notempty", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(err)
	}

	return v
}()

// Validate checks v against its validate tags.
func Validate(v any) error {
	if err := requestValidator.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// BindAndValidate decodes the JSON body into v and validates it.
func BindAndValidate(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return Validate(v)
}

// BindPatchAndValidate is BindAndValidate for partial updates. An empty body
// decodes as an empty patch.
func BindPatchAndValidate(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return Validate(v)
}

// ValidationErrors maps each failing field to a client-facing message. It is
// empty for errors that did not come from the validator.
func ValidationErrors(err error) map[string]string {
	out := make(map[string]string)

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			out[fe.Field()] = fieldMessage(fe)
		}
	}

	return out
}

// IsValidationError reports whether err carries validator field errors.
func IsValidationError(err error) bool {
	var fieldErrs validator.ValidationErrors
	return errors.As(err, &fieldErrs)
}

func fieldMessage(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}

	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "notempty":
		return "must not be empty"
	case "min":
		return "must be at least " + fe.Param() + unit
	case "max":
		return "must be at most " + fe.Param() + unit
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	default:
		return "failed validation: " + fe.Tag()
	}
}
