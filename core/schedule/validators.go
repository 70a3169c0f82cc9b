package schedule

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/ficct/horarios/core"
)

var (
	weekdayTag  = "weekday"
	weekdayText = "{0} must be one of MO, TU, WE, TH, FR, SA"

	periodTag  = "period"
	periodText = "{0} must be one of I, II, SUMMER"

	classroomTypeTag  = "classroomtype"
	classroomTypeText = "{0} must be one of Aula, Laboratorio, Auditorio, Sala de Conferencias, Taller"

	slotsTag  = "slots"
	slotsText = "select at least one time slot"

	endAfterStartTag  = "endafterstart"
	endAfterStartText = "end time must be after start time"
)

// InitValidators registers the schedule validators and their messages.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(weekdayTag, weekdayValidation)
	core.RegisterCustomTranslation(validate, translator, weekdayTag, weekdayText)

	_ = validate.RegisterValidation(periodTag, periodValidation)
	core.RegisterCustomTranslation(validate, translator, periodTag, periodText)

	_ = validate.RegisterValidation(classroomTypeTag, classroomTypeValidation)
	core.RegisterCustomTranslation(validate, translator, classroomTypeTag, classroomTypeText)

	_ = validate.RegisterValidation(slotsTag, slotsValidation)
	core.RegisterCustomTranslation(validate, translator, slotsTag, slotsText)

	validate.RegisterStructValidation(timeSlotStructValidation, TimeSlot{})
	core.RegisterCustomTranslation(validate, translator, endAfterStartTag, endAfterStartText)
}

// NewValidate returns a validator with the core and schedule validators registered.
func NewValidate(translator ut.Translator) *validator.Validate {
	validate := core.NewValidate(translator)
	InitValidators(validate, translator)
	return validate
}

// Custom Validators

func weekdayValidation(fl validator.FieldLevel) bool {
	return Weekday(fl.Field().String()).Index() >= 0
}

func periodValidation(fl validator.FieldLevel) bool {
	p := Period(fl.Field().String())
	for _, period := range Periods {
		if p == period {
			return true
		}
	}
	return false
}

func classroomTypeValidation(fl validator.FieldLevel) bool {
	ct := ClassroomType(fl.Field().String())
	for _, typ := range ClassroomTypes {
		if ct == typ {
			return true
		}
	}
	return false
}

// slotsValidation requires a non-empty slot id list.
func slotsValidation(fl validator.FieldLevel) bool {
	return fl.Field().Len() > 0
}

// timeSlotStructValidation checks that a TimeSlot ends after it starts.
func timeSlotStructValidation(sl validator.StructLevel) {
	slot, ok := sl.Current().Interface().(TimeSlot)
	if !ok {
		return
	}
	block := slot.Block()
	if block.Start != "" && block.End != "" && block.End <= block.Start {
		sl.ReportError(slot.End, "horafinal", "End", endAfterStartTag, "")
	}
}
