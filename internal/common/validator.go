package common

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError carries one message per offending field.
type ValidationError struct {
	Errors map[string]string
}

func (e ValidationError) Error() string {
	_, msg := e.first()
	return msg
}

type Validator struct {
	Errors map[string]string
}

func NewValidator() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError keeps the first message recorded for a field.
func (v *Validator) AddError(field, message string) {
	if _, ok := v.Errors[field]; !ok {
		v.Errors[field] = message
	}
}

func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

func (v *Validator) Required(value, field string) {
	v.Check(strings.TrimSpace(value) != "", field, "must be provided")
}

func (v *Validator) MinLength(value string, min int, field string) {
	v.Check(utf8.RuneCountInString(value) >= min, field, fmt.Sprintf("must be at least %d characters long", min))
}

func (v *Validator) ValidationError() error {
	return ValidationError{Errors: v.Errors}
}
