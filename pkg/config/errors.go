package config

import (
	"fmt"
	"strings"
)

// ValidationError describes one invalid setting, addressed by its YAML path
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s (got %q)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid setting found by Validate
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return "configuration is invalid"
	case 1:
		return e[0].Error()
	}

	problems := make([]string, len(e))
	for i, err := range e {
		problems[i] = err.Error()
	}
	return fmt.Sprintf("%d invalid settings: %s", len(e), strings.Join(problems, "; "))
}

// Add records a missing or empty setting
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// AddValue records a setting whose value is present but unacceptable
func (e *ValidationErrors) AddValue(field string, value interface{}, message string) {
	*e = append(*e, ValidationError{Field: field, Value: fmt.Sprint(value), Message: message})
}

// HasErrors reports whether any setting was rejected
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Fields returns the YAML paths of the rejected settings, in check order
func (e ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(e))
	for _, err := range e {
		fields = append(fields, err.Field)
	}
	return fields
}
