package snapshot

import (
	"errors"
	"fmt"
)

// ErrorType categorizes snapshot errors
type ErrorType string

const (
	ErrorTypeStorage       ErrorType = "STORAGE_ERROR"
	ErrorTypeValidation    ErrorType = "VALIDATION_ERROR"
	ErrorTypeCompression   ErrorType = "COMPRESSION_ERROR"
	ErrorTypeEncryption    ErrorType = "ENCRYPTION_ERROR"
	ErrorTypeCorruption    ErrorType = "CORRUPTION_ERROR"
	ErrorTypeNetwork       ErrorType = "NETWORK_ERROR"
	ErrorTypeDatabase      ErrorType = "DATABASE_ERROR"
	ErrorTypeConfiguration ErrorType = "CONFIGURATION_ERROR"
	ErrorTypeNotFound      ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeAborted       ErrorType = "ABORTED_ERROR"
)

// Category sentinels. errors.Is(err, ErrCorruption) matches any
// SnapshotError of that category anywhere in the chain.
var (
	ErrStorage       = errors.New("storage error")
	ErrValidation    = errors.New("validation error")
	ErrCompression   = errors.New("compression error")
	ErrEncryption    = errors.New("encryption error")
	ErrCorruption    = errors.New("corruption detected")
	ErrNetwork       = errors.New("network error")
	ErrDatabase      = errors.New("database error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrAborted       = errors.New("operation aborted")
)

var sentinels = map[ErrorType]error{
	ErrorTypeStorage:       ErrStorage,
	ErrorTypeValidation:    ErrValidation,
	ErrorTypeCompression:   ErrCompression,
	ErrorTypeEncryption:    ErrEncryption,
	ErrorTypeCorruption:    ErrCorruption,
	ErrorTypeNetwork:       ErrNetwork,
	ErrorTypeDatabase:      ErrDatabase,
	ErrorTypeConfiguration: ErrConfiguration,
	ErrorTypeNotFound:      ErrNotFound,
	ErrorTypeAborted:       ErrAborted,
}

// SnapshotError is a categorized error with optional cause and
// key/value context
type SnapshotError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *SnapshotError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *SnapshotError) Unwrap() error {
	return e.Cause
}

// Is matches the category sentinel for the error's type
func (e *SnapshotError) Is(target error) bool {
	return sentinels[e.Type] == target
}

// NewError creates a new SnapshotError
func NewError(errorType ErrorType, message string, cause error) *SnapshotError {
	return &SnapshotError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *SnapshotError) WithContext(key string, value interface{}) *SnapshotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors
func NewStorageError(message string, cause error) *SnapshotError {
	return NewError(ErrorTypeStorage, message, cause)
}

func NewValidationError(message string, cause error) *SnapshotError {
	return NewError(ErrorTypeValidation, message, cause)
}

func NewCompressionError(message string, cause error) *SnapshotError {
	return NewError(ErrorTypeCompression, message, cause)
}

func NewEncryptionError(message string, cause error) *SnapshotError {
	return NewError(ErrorTypeEncryption, message, cause)
}

func NewCorruptionError(message string, cause error) *SnapshotError {
	return NewError(ErrorTypeCorruption, message, cause)
}

func NewNetworkError(message string, cause error) *SnapshotError {
	return NewError(ErrorTypeNetwork, message, cause)
}

func NewDatabaseError(message string, cause error) *SnapshotError {
	return NewError(ErrorTypeDatabase, message, cause)
}

func NewConfigurationError(message string, cause error) *SnapshotError {
	return NewError(ErrorTypeConfiguration, message, cause)
}

func NewNotFoundError(message string, cause error) *SnapshotError {
	return NewError(ErrorTypeNotFound, message, cause)
}

func NewAbortedError(message string, cause error) *SnapshotError {
	return NewError(ErrorTypeAborted, message, cause)
}

// ValidationError represents a single validation finding
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
}

// Add adds a validation error to the collection
func (e *ValidationErrors) Add(field, message string, value interface{}) {
	*e = append(*e, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// IsRetryable determines if an error is worth retrying
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrStorage)
}

// IsPermanent determines if an error is permanent and should not be retried
func IsPermanent(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrCorruption) ||
		errors.Is(err, ErrConfiguration) || errors.Is(err, ErrAborted)
}
