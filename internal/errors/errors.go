package errors

import (
	"encoding/json"
	"fmt"
)

// ArgumentErr signals that caller passed argument which violates operation precondition
type ArgumentErr struct {
	target  string
	message string
}

func (e *ArgumentErr) Error() string {
	return e.message
}

// Target returns name of the violated argument
func (e *ArgumentErr) Target() string {
	return e.target
}

func (e *ArgumentErr) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Target  string `json:"target"`
		Message string `json:"message"`
	}{Target: e.target, Message: e.message})
}

func NewArgumentErr(target string, msg string) error {
	return &ArgumentErr{
		target:  target,
		message: msg,
	}
}

// ValidationErr is raised by storage when persisted value breaks a constraint
type ValidationErr struct {
	field   string
	message string
	cause   error
}

func (e *ValidationErr) Error() string {
	if e.field == "" {
		return fmt.Sprintf("validation failed: %s", e.message)
	}
	return fmt.Sprintf("validation failed for field '%s': %s", e.field, e.message)
}

// Field returns name of the field which broke constraint
func (e *ValidationErr) Field() string {
	return e.field
}

func (e *ValidationErr) Unwrap() error {
	return e.cause
}

func (e *ValidationErr) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}{Field: e.field, Message: e.message})
}

func NewValidationErr(field string, msg string, cause error) error {
	return &ValidationErr{
		field:   field,
		message: msg,
		cause:   cause,
	}
}

type EntryNotFoundErr struct {
	message string
}

func (e *EntryNotFoundErr) Error() string {
	return e.message
}

func NewEntryNotFoundErr(msg string) *EntryNotFoundErr {
	return &EntryNotFoundErr{message: msg}
}
