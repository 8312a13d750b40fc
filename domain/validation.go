package domain

import (
	"estate-match/errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// BaseField scopes an error to the whole record rather than one attribute.
const BaseField = "base"

var validate = validator.New()

type FieldError struct {
	Field   string
	Message string
	// Cause is an optional sentinel the error also matches with errors.Is.
	Cause error
}

func (f FieldError) String() string {
	if f.Field == BaseField {
		return f.Message
	}
	return fmt.Sprintf("%s %s", f.Field, f.Message)
}

// ValidationErrors collects every broken rule of a record.
// It unwraps to errors.ErrValidation and to every attached cause,
// so callers can branch with errors.Is.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	messages := make([]string, 0, len(v))
	for _, f := range v {
		messages = append(messages, f.String())
	}
	return strings.Join(messages, ", ")
}

func (v ValidationErrors) Unwrap() []error {
	res := []error{errors.ErrValidation}
	for _, f := range v {
		if f.Cause != nil {
			res = append(res, f.Cause)
		}
	}
	return res
}

func (v *ValidationErrors) AddCause(field, message string, cause error) {
	*v = append(*v, FieldError{Field: field, Message: message, Cause: cause})
}

// Invalid builds a single-field validation error.
func Invalid(field, message string, cause error) error {
	var errs ValidationErrors
	errs.AddCause(field, message, cause)
	return errs
}

// On returns the messages attached to one field.
func (v ValidationErrors) On(field string) []string {
	var res []string
	for _, f := range v {
		if f.Field == field {
			res = append(res, f.Message)
		}
	}
	return res
}

func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

func (v *ValidationErrors) Merge(err error) {
	if err == nil {
		return
	}
	var other ValidationErrors
	if errors.As(err, &other) {
		*v = append(*v, other...)
		return
	}
	v.Add(BaseField, err.Error())
}

// Err returns nil when nothing was collected, so it can be returned directly.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// checkStruct runs the struct tag rules and translates them to field errors.
func checkStruct(s any) ValidationErrors {
	var res ValidationErrors
	err := validate.Struct(s)
	if err == nil {
		return res
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		res.Add(BaseField, err.Error())
		return res
	}
	for _, fe := range fieldErrs {
		res.Add(toSnake(fe.Field()), describe(fe))
	}
	return res
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "can't be blank"
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("is too long (maximum is %s characters)", fe.Param())
		}
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte", "min":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return "is not included in the list"
	case "email":
		return "is invalid"
	default:
		return fmt.Sprintf("is invalid (%s)", fe.Tag())
	}
}

// toSnake maps Go field names to the attribute names callers see,
// keeping acronyms together (OwnerID -> owner_id).
func toSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if isUpper(r) {
			prevLower := i > 0 && !isUpper(runes[i-1])
			nextLower := i > 0 && i+1 < len(runes) && !isUpper(runes[i+1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
