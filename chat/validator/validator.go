// Package validator wraps go-playground/validator behind a small
// surface shared by the engine and the CLI configuration.
package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator validates single values and tagged structs.
type Validator struct {
	val *validator.Validate
}

// A ValidationError describes one failed rule on one field.
type ValidationError struct {
	Field   string
	Rule    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// New returns a ready to use Validator.
func New() *Validator {
	return &Validator{
		val: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateStruct checks every tagged field of s and returns one entry
// per failed rule. A nil result means s is valid.
func (v *Validator) ValidateStruct(s interface{}) []ValidationError {
	if err := v.val.Struct(s); err != nil {
		return format(err)
	}
	return nil
}

// Validate checks a single value against the given validation tag.
func (v *Validator) Validate(value interface{}, tag string) []ValidationError {
	if err := v.val.Var(value, tag); err != nil {
		return format(err)
	}
	return nil
}

func format(err error) []ValidationError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Message: err.Error()}}
	}
	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.StructField(),
			Rule:    fe.Tag(),
			Message: fmt.Sprintf("failed on the %q rule", fe.Tag()),
		})
	}
	return out
}
