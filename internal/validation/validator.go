package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error lists all violations found in validated struct
type Error struct {
	violations []Violation
}

func (e *Error) Error() string {
	buff := bytes.NewBufferString("")

	for i, v := range e.violations {
		if i > 0 {
			buff.WriteString("\n")
		}
		buff.WriteString(v.Message)
	}

	return buff.String()
}

func (e *Error) Violation(v Violation) {
	e.violations = append(e.violations, v)
}

func (e *Error) Violations() []Violation {
	return e.violations
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Errors []Violation `json:"errors"`
	}{
		Errors: e.violations,
	})
}

type Validator struct {
	validator  *validator.Validate
	translator ut.Translator
}

// New builds validator with english messages, fields are named after their env tag if present
func New() (*Validator, error) {
	enLocale := en.New()
	unvTranslator := ut.New(enLocale, enLocale)
	trans, ok := unvTranslator.GetTranslator("en")
	if !ok {
		return nil, errors.New("failed to build validator because of missing en translations")
	}

	validate := validator.New()
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, fmt.Errorf("failed to register en translations - %w", err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("env"), ",", 2)[0]
		if name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{validator: validate, translator: trans}, nil
}

func (v *Validator) Validate(i interface{}) error {
	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return v.validationError(ve)
	}

	return fmt.Errorf("failed to validate %T - %w", i, err)
}

func (v *Validator) validationError(ve validator.ValidationErrors) error {
	valErr := &Error{violations: make([]Violation, 0, len(ve))}
	for _, e := range ve {
		valErr.Violation(Violation{
			Field:   e.Field(),
			Message: e.Translate(v.translator),
		})
	}
	return valErr
}
