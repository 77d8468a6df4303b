package validator

import (
	"regexp"

	"reservo/pkg/logger"
	"reservo/pkg/model"
	"reservo/pkg/validation"

	"github.com/go-playground/validator/v10"
)

var personNameRegex = regexp.MustCompile(`^[\p{L}\p{M}][\p{L}\p{M}' .\-]*$`)

type BookingValidator struct {
	v *validation.Validator
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v, err := validation.New(validation.Rule{
		Tag:     "person_name",
		Fn:      validatePersonName,
		Message: "may only contain letters, spaces, apostrophes, dots and hyphens",
	})
	if err != nil {
		log.Fatal("Failed to build booking validator", "error", err)
	}

	log.Info("Booking validator initialized successfully")
	return &BookingValidator{v: v}
}

func validatePersonName(fl validator.FieldLevel) bool {
	return personNameRegex.MatchString(fl.Field().String())
}

// Validate returns validation.Errors for rejected input.
func (v *BookingValidator) Validate(req *model.BookingRequest) error {
	return v.v.Struct(req)
}
