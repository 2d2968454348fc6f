// Package errors provides custom error types for the raceresults system.
// These errors enable programmatic error checking and carry enough context
// (event, athlete, document path) for a failed run to be diagnosed from logs.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Join aggregates multiple errors into one.
// It's an alias for the standard library errors.Join.
var Join = errors.Join

// Common sentinel errors for the raceresults system
var (
	// ErrNotFound indicates that a requested document or resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnresolvedIdentity indicates that an observation could not be
	// attributed to a canonical athlete
	ErrUnresolvedIdentity = errors.New("unresolved identity")

	// ErrConfiguration indicates a misconfiguration that must be fixed by an
	// operator before the affected data can be processed
	ErrConfiguration = errors.New("configuration error")

	// ErrReadOnly indicates an attempt to modify a read-only resource
	ErrReadOnly = errors.New("read only")
)

// ValidationError represents a per-record validation failure. Records failing
// validation are skipped and logged; they never abort a batch.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// IdentityError represents a failure to resolve an observation to a
// canonical athlete key.
type IdentityError struct {
	Name    string
	UciID   string
	Message string
}

// Error implements the error interface
func (e *IdentityError) Error() string {
	if e.UciID != "" {
		return fmt.Sprintf("identity resolution failed for %s (UCI ID %s): %s", e.Name, e.UciID, e.Message)
	}
	return fmt.Sprintf("identity resolution failed for %s: %s", e.Name, e.Message)
}

// Is implements errors.Is support
func (e *IdentityError) Is(target error) bool {
	return target == ErrUnresolvedIdentity
}

// NewIdentityError creates a new IdentityError
func NewIdentityError(name, uciID, message string) *IdentityError {
	return &IdentityError{Name: name, UciID: uciID, Message: message}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// MergeError represents an error during a registry or point-store merge
type MergeError struct {
	AthleteKey string
	EventHash  string
	Message    string
	Err        error
}

// Error implements the error interface
func (e *MergeError) Error() string {
	switch {
	case e.AthleteKey != "" && e.EventHash != "":
		return fmt.Sprintf("merge error for athlete %s at event %s: %s", e.AthleteKey, e.EventHash, e.Message)
	case e.AthleteKey != "":
		return fmt.Sprintf("merge error for athlete %s: %s", e.AthleteKey, e.Message)
	default:
		return fmt.Sprintf("merge error: %s", e.Message)
	}
}

// Unwrap implements errors.Unwrap
func (e *MergeError) Unwrap() error {
	return e.Err
}

// NewMergeError creates a new MergeError
func NewMergeError(athleteKey, eventHash, message string, err error) *MergeError {
	return &MergeError{
		AthleteKey: athleteKey,
		EventHash:  eventHash,
		Message:    message,
		Err:        err,
	}
}

// ConsolidationError represents a non-fatal category consolidation failure,
// such as a combination group referencing a category that does not exist for
// the event. These are surfaced on the run result, never thrown.
type ConsolidationError struct {
	EventHash string
	Group     string
	Alias     string
	Message   string
}

// Error implements the error interface
func (e *ConsolidationError) Error() string {
	if e.Alias != "" {
		return fmt.Sprintf("consolidation error in group %q for event %s: category %q %s", e.Group, e.EventHash, e.Alias, e.Message)
	}
	return fmt.Sprintf("consolidation error in group %q for event %s: %s", e.Group, e.EventHash, e.Message)
}

// ScheduleError represents a field size with no matching point-schedule
// range. Every legal field size must be covered, so this is a fatal
// configuration error.
type ScheduleError struct {
	FieldSize int
	Category  string
}

// Error implements the error interface
func (e *ScheduleError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("no point schedule range covers field size %d (category %s)", e.FieldSize, e.Category)
	}
	return fmt.Sprintf("no point schedule range covers field size %d", e.FieldSize)
}

// Is implements errors.Is support
func (e *ScheduleError) Is(target error) bool {
	return target == ErrConfiguration
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", etc.
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// StorageError represents an error during blob storage operations
type StorageError struct {
	Operation string // "get", "put", "list"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("storage error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("storage error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError
func NewStorageError(operation, path string, err error) *StorageError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &StorageError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// SourceError represents a per-item failure while loading one event's source
// data. A SourceError never aborts sibling work; the runner collects them on
// the run result so the affected events can be retried manually.
type SourceError struct {
	EventHash string
	Source    string
	Err       error
}

// Error implements the error interface
func (e *SourceError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("source error for event %s (%s): %v", e.EventHash, e.Source, e.Err)
	}
	return fmt.Sprintf("source error for event %s: %v", e.EventHash, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a new SourceError
func NewSourceError(eventHash, source string, err error) *SourceError {
	return &SourceError{EventHash: eventHash, Source: source, Err: err}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnresolvedIdentity checks if an error is an identity resolution failure
func IsUnresolvedIdentity(err error) bool {
	return errors.Is(err, ErrUnresolvedIdentity)
}

// IsConfiguration checks if an error is a configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapStorage wraps an error as a StorageError
func WrapStorage(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewStorageError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
