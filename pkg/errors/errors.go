package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DomainErrorType represents the category of domain error
type DomainErrorType string

const (
	// DomainValidationError indicates malformed input shape or values
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainNotFoundError indicates a referenced id is absent
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainDuplicateIDError indicates an id collision on create
	DomainDuplicateIDError DomainErrorType = "DUPLICATE_ID"

	// DomainInvalidReferenceError indicates a relation endpoint (or member) is missing
	DomainInvalidReferenceError DomainErrorType = "INVALID_REFERENCE"

	// DomainMigrationError indicates an unsupported or unreachable snapshot version
	DomainMigrationError DomainErrorType = "MIGRATION_ERROR"
)

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type    DomainErrorType        `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// WithCause adds a cause to the error
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Is matches on Type, and on Code as well when the target carries one.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if e.Type != t.Type {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// StatusCode maps the error type to an HTTP status code
func (e *DomainError) StatusCode() int {
	switch e.Type {
	case DomainValidationError:
		return http.StatusBadRequest
	case DomainNotFoundError:
		return http.StatusNotFound
	case DomainDuplicateIDError:
		return http.StatusConflict
	case DomainInvalidReferenceError, DomainMigrationError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Type-level sentinels for errors.Is. They carry no code, so any error of
// the same type matches.
var (
	ErrValidation       = &DomainError{Type: DomainValidationError}
	ErrNotFound         = &DomainError{Type: DomainNotFoundError}
	ErrDuplicateID      = &DomainError{Type: DomainDuplicateIDError}
	ErrInvalidReference = &DomainError{Type: DomainInvalidReferenceError}
	ErrMigration        = &DomainError{Type: DomainMigrationError}
)

// Coded sentinels. Never call With* on these; use the constructors below.
var (
	ErrCharacterNotFound = &DomainError{Type: DomainNotFoundError, Code: "CHARACTER_NOT_FOUND"}
	ErrRelationNotFound  = &DomainError{Type: DomainNotFoundError, Code: "RELATION_NOT_FOUND"}
	ErrSheetNotFound     = &DomainError{Type: DomainNotFoundError, Code: "SHEET_NOT_FOUND"}
	ErrGroupNotFound     = &DomainError{Type: DomainNotFoundError, Code: "GROUP_NOT_FOUND"}
	ErrSessionNotFound   = &DomainError{Type: DomainNotFoundError, Code: "SESSION_NOT_FOUND"}
	ErrSelfRelation      = &DomainError{Type: DomainValidationError, Code: "SELF_RELATION"}
	ErrInvalidPosition   = &DomainError{Type: DomainValidationError, Code: "INVALID_POSITION"}
	ErrNewerSnapshot     = &DomainError{Type: DomainMigrationError, Code: "NEWER_SNAPSHOT"}
	ErrMissingMigration  = &DomainError{Type: DomainMigrationError, Code: "MISSING_MIGRATION"}
)

// NewValidationError creates a validation error
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(DomainValidationError, code, message)
}

// NewNotFoundError creates a not found error for the given resource kind and id
func NewNotFoundError(resource, id string) *DomainError {
	code := strings.ToUpper(resource) + "_NOT_FOUND"
	return NewDomainError(DomainNotFoundError, code, fmt.Sprintf("%s %q not found", resource, id)).
		WithDetail("id", id)
}

// NewDuplicateIDError creates an id collision error
func NewDuplicateIDError(resource, id string) *DomainError {
	code := "DUPLICATE_" + strings.ToUpper(resource) + "_ID"
	return NewDomainError(DomainDuplicateIDError, code, fmt.Sprintf("%s id %q already exists", resource, id)).
		WithDetail("id", id)
}

// NewInvalidReferenceError creates an error for a reference to a missing entity
func NewInvalidReferenceError(field, id string) *DomainError {
	return NewDomainError(DomainInvalidReferenceError, "MISSING_ENDPOINT",
		fmt.Sprintf("%s references unknown character %q", field, id)).
		WithDetail("field", field).
		WithDetail("id", id)
}

// NewSelfRelationError creates the from == to validation error
func NewSelfRelationError(id string) *DomainError {
	return NewDomainError(DomainValidationError, ErrSelfRelation.Code,
		"a relation cannot connect a character to itself").
		WithDetail("id", id)
}

// NewInvalidPositionError creates the non-finite coordinate validation error
func NewInvalidPositionError(x, y float64) *DomainError {
	return NewDomainError(DomainValidationError, ErrInvalidPosition.Code,
		"position coordinates must be finite numbers").
		WithDetail("x", fmt.Sprint(x)).
		WithDetail("y", fmt.Sprint(y))
}

// NewMigrationError creates a migration error
func NewMigrationError(code, message string) *DomainError {
	return NewDomainError(DomainMigrationError, code, message)
}

// GetDomainError extracts a DomainError from an error chain
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// GetValidationErrors extracts an aggregate from an error chain
func GetValidationErrors(err error) *ValidationErrors {
	var verrs *ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	return nil
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsMigration checks if an error is a migration error
func IsMigration(err error) bool {
	return errors.Is(err, ErrMigration)
}

// ValidationErrors aggregates multiple errors into one raised error
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates a new validation errors collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]*DomainError, 0),
	}
}

// Add adds a field validation error
func (v *ValidationErrors) Add(field string, message string) {
	err := NewDomainError(DomainValidationError, "FIELD_VALIDATION_ERROR", message).
		WithDetail("field", field)
	v.Errors = append(v.Errors, err)
}

// AddError adds a pre-existing domain error
func (v *ValidationErrors) AddError(err *DomainError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors returns true if there are validation errors
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}

	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// Unwrap exposes the members to errors.Is / errors.As
func (v *ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v.Errors))
	for i, err := range v.Errors {
		errs[i] = err
	}
	return errs
}

// Is reports validation failure even when members are of other types
func (v *ValidationErrors) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Type == DomainValidationError && t.Code == ""
}

// ToMap converts validation errors to a map for JSON serialization
func (v *ValidationErrors) ToMap() map[string][]string {
	result := make(map[string][]string)

	for _, err := range v.Errors {
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}
		result[field] = append(result[field], err.Message)
	}

	return result
}

// OrNil returns nil when nothing was collected, so callers can return it directly
func (v *ValidationErrors) OrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}
