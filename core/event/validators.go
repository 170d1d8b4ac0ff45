package event

import (
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/clubemanager/backend/core"
)

var (
	allTypesTag  = "alleventtypes"
	allTypesText = "invalid event type"

	allStatusesTag  = "alleventstatuses"
	allStatusesText = "invalid event status"
)

// InitValidators registers event validation tags and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(allTypesTag, inListValidation(AllTypes))
	core.RegisterCustomTranslation(validate, translator, allTypesTag, allTypesText)

	_ = validate.RegisterValidation(allStatusesTag, inListValidation(AllStatuses))
	core.RegisterCustomTranslation(validate, translator, allStatusesTag, allStatusesText)
}

// inListValidation checks that the field value is one of the allowed values.
func inListValidation(allowed []string) validator.Func {
	sorted := append([]string(nil), allowed...)
	sort.Strings(sorted)
	return func(fl validator.FieldLevel) bool {
		val, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		if idx := sort.SearchStrings(sorted, val); idx < len(sorted) {
			return sorted[idx] == val
		}
		return false
	}
}
