package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ruleMessages phrase the tags used on Config. %[1]s is the field path and
// %[2]s the tag parameter.
var ruleMessages = map[string]string{
	"required":    "%[1]s is required",
	"required_if": "%[1]s is required when %[2]s",
	"min":         "%[1]s must be at least %[2]s",
	"max":         "%[1]s must be at most %[2]s",
	"oneof":       "%[1]s must be one of: %[2]s",
	"url":         "%[1]s must be a valid URL",
}

// Validate reports every invalid field at once. The service refuses to start
// on error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	lines := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		lines[i] = describe(fe)
	}

	return fmt.Errorf("config validation failed:\n  %s", strings.Join(lines, "\n  "))
}

func describe(fe validator.FieldError) string {
	field := formatFieldPath(fe.Namespace())

	if msg, ok := ruleMessages[fe.Tag()]; ok {
		return fmt.Sprintf(msg, field, fe.Param())
	}

	return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
}

// formatFieldPath turns "Config.Server.Port" into the koanf-style
// "server.port".
func formatFieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		namespace = rest
	}

	return strings.ToLower(namespace)
}
