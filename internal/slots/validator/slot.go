package validator

import (
	"reservo/pkg/logger"
	"reservo/pkg/model"
	"reservo/pkg/validation"
)

type SlotValidator struct {
	v *validation.Validator
}

func NewSlotValidator(log *logger.Logger) *SlotValidator {
	v, err := validation.New()
	if err != nil {
		log.Fatal("Failed to build slot validator", "error", err)
	}

	log.Info("Slot validator initialized successfully")
	return &SlotValidator{v: v}
}

// Validate requires a non-empty window with start strictly before end.
func (v *SlotValidator) Validate(req *model.SlotRequest) error {
	if err := v.v.Struct(req); err != nil {
		return err
	}
	if !req.EndTime.After(req.StartTime) {
		return validation.Errors{{Field: "end_time", Message: "end_time must be after start_time"}}
	}
	return nil
}
