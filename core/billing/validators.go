package billing

import (
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/clubemanager/backend/core"
)

var (
	allScopesTag  = "allscopes"
	allScopesText = "invalid roster scope"
)

// InitValidators registers billing validation tags and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(allScopesTag, allScopesValidation)
	core.RegisterCustomTranslation(validate, translator, allScopesTag, allScopesText)
}

// allScopesValidation checks that the provided scope is a known roster scope.
func allScopesValidation(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	sorted := append([]string(nil), AllScopes...)
	sort.Strings(sorted)
	if idx := sort.SearchStrings(sorted, val); idx < len(sorted) {
		return sorted[idx] == val
	}
	return false
}
