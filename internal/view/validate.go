package view

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/sakif/vidshare/internal/apperror"
)

var (
	validate   *validator.Validate
	translator ut.Translator
	initOnce   sync.Once
)

func setupValidator() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})

	locale := en.New()
	translator, _ = ut.New(locale, locale).GetTranslator("en")
	_ = entranslations.RegisterDefaultTranslations(validate, translator)

	// Lines already start with the field name.
	_ = validate.RegisterTranslation("required", translator,
		func(t ut.Translator) error {
			return t.Add("required", "is required", true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T("required")
			return msg
		},
	)
}

// Validate checks v's validate tags and reports failures as an
// *apperror.ValidationError keyed by form field name. It returns nil when v
// is valid.
func Validate(v any) *apperror.ValidationError {
	initOnce.Do(setupValidator)

	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &apperror.ValidationError{Message: err.Error(), Status: 400}
	}

	verr := &apperror.ValidationError{Status: 400}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), fe.Translate(translator))
	}
	return verr
}
