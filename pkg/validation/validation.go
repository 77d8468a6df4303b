// Package validation wraps go-playground/validator with JSON field names
// and readable messages shared by the request validators.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return ""
	}
	messages := make([]string, 0, len(e))
	for _, fe := range e {
		messages = append(messages, fe.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(e), strings.Join(messages, "; "))
}

// Details maps each failing field to its message, for error responses.
// Errors that are not validation failures yield a single "error" entry.
func Details(err error) map[string]any {
	var errs Errors
	if !errors.As(err, &errs) {
		return map[string]any{"error": err.Error()}
	}
	details := make(map[string]any, len(errs))
	for _, fe := range errs {
		details[fe.Field] = fe.Message
	}
	return details
}

// Rule is a custom tag registered on the validator.
type Rule struct {
	Tag     string
	Fn      validator.Func
	Message string
}

// Validator reports struct tag failures as Errors.
type Validator struct {
	validate *validator.Validate
	messages map[string]string
}

func New(rules ...Rule) (*Validator, error) {
	v := validator.New()
	v.RegisterTagNameFunc(jsonTagName)

	messages := map[string]string{}
	for _, rule := range rules {
		if err := v.RegisterValidation(rule.Tag, rule.Fn); err != nil {
			return nil, fmt.Errorf("register %q: %w", rule.Tag, err)
		}
		messages[rule.Tag] = rule.Message
	}
	return &Validator{validate: v, messages: messages}, nil
}

func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(Errors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, FieldError{Field: fe.Field(), Message: v.message(fe)})
	}
	return out
}

func (v *Validator) message(fe validator.FieldError) string {
	field := fe.Field()
	if custom, ok := v.messages[fe.Tag()]; ok {
		return fmt.Sprintf("%s %s", field, custom)
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "e164":
		return fmt.Sprintf("%s must be in E.164 format (e.g., +972501234567)", field)
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", field, jsonName(fe))
	default:
		return fe.Error()
	}
}

// jsonName returns the compared field's JSON name for cross-field tags.
func jsonName(fe validator.FieldError) string {
	param := fe.Param()
	if param == "" {
		return param
	}
	var b strings.Builder
	for i, r := range param {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

func jsonTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}
