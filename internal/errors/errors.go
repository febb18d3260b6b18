package errors

import (
	"strings"
)

// ValidationError represents a single invalid field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every invalid field found in one validation pass
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// Add records an invalid field
func (v *ValidationErrors) Add(field, message string) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Message: message})
}

// Empty reports whether no field failed
func (v *ValidationErrors) Empty() bool {
	return len(v.Errors) == 0
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	parts := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return strings.Join(parts, "; ")
}

// Fields returns the names of the invalid fields in discovery order
func (v *ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

// AsConfigError wraps the collected field errors as a CONFIG AppError,
// or returns nil when nothing failed.
func (v *ValidationErrors) AsConfigError(message string) error {
	if v.Empty() {
		return nil
	}
	return NewConfigError(message, v).WithContext("fields", v.Fields())
}
