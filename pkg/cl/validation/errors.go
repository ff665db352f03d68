package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a single validation error for a field or key.
type ValidationError struct {
	Field   string // Dotted field name, e.g. "site.path"
	Message string // Human-readable message
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsZero reports whether the error carries no message.
func (e ValidationError) IsZero() bool {
	return e.Message == ""
}

// ValidationErrors is a collection of validation errors that can be accumulated.
type ValidationErrors []ValidationError

// Error implements the error interface, combining all error messages.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Add appends a validation error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// AddError appends err unless it is the zero value returned by a passing validator.
func (e *ValidationErrors) AddError(err ValidationError) {
	if err.IsZero() {
		return
	}
	*e = append(*e, err)
}

// ForField returns all errors for a specific field.
func (e ValidationErrors) ForField(field string) []string {
	var messages []string
	for _, err := range e {
		if err.Field == field {
			messages = append(messages, err.Message)
		}
	}
	return messages
}

// Fields returns all unique field names that have errors.
func (e ValidationErrors) Fields() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, err := range e {
		if err.Field != "" && !seen[err.Field] {
			seen[err.Field] = true
			fields = append(fields, err.Field)
		}
	}
	return fields
}

// AsError returns nil when there are no errors, so callers can return it directly.
func (e ValidationErrors) AsError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// IsRequired checks if a string is not empty.
func IsRequired(value string) bool {
	return strings.TrimSpace(value) != ""
}

// IsAbsoluteURL checks that value parses as a URL with scheme and host.
func IsAbsoluteURL(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// RequiredString validates that a string field is not empty.
func RequiredString(field, value string) ValidationError {
	if !IsRequired(value) {
		return ValidationError{Field: field, Message: "is required"}
	}
	return ValidationError{}
}

// OptionalAbsoluteURL validates value as an absolute URL when it is set.
func OptionalAbsoluteURL(field, value string) ValidationError {
	if value == "" || IsAbsoluteURL(value) {
		return ValidationError{}
	}
	return ValidationError{Field: field, Message: "must be an absolute URL"}
}
