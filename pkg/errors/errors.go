package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeClassification represents intent-classification errors
	ErrorTypeClassification ErrorType = "classification"
	// ErrorTypeTranslation represents query-translation errors
	ErrorTypeTranslation ErrorType = "translation"
	// ErrorTypeExecution represents graph query execution errors
	ErrorTypeExecution ErrorType = "execution"
	// ErrorTypeComposition represents reply-composition errors
	ErrorTypeComposition ErrorType = "composition"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Classification Errors

// ErrClassificationUnavailable is returned when the inference call behind the
// intent classifier fails or times out. No category is guessed in its place.
type ErrClassificationUnavailable struct {
	*BaseError
	Utterance string
}

func NewClassificationUnavailable(utterance string, err error) *ErrClassificationUnavailable {
	return &ErrClassificationUnavailable{
		BaseError: NewBaseError(ErrorTypeClassification, "intent classification unavailable", err),
		Utterance: utterance,
	}
}

// Translation Errors

// ErrTranslationFailed is returned when an utterance cannot be mapped to any
// valid graph query shape. Distinct from a query that runs and finds nothing.
type ErrTranslationFailed struct {
	*BaseError
	Utterance string
	Reason    string
}

func NewTranslationFailed(utterance, reason string, err error) *ErrTranslationFailed {
	return &ErrTranslationFailed{
		BaseError: NewBaseError(ErrorTypeTranslation, fmt.Sprintf("could not translate to a graph query: %s", reason), err),
		Utterance: utterance,
		Reason:    reason,
	}
}

// Execution Errors

// ErrExecutionFailed is returned when a graph query could not be run: the
// query was malformed or the database was unreachable.
type ErrExecutionFailed struct {
	*BaseError
	Query string
}

func NewExecutionFailed(query string, err error) *ErrExecutionFailed {
	return &ErrExecutionFailed{
		BaseError: NewBaseError(ErrorTypeExecution, "graph query execution failed", err),
		Query:     query,
	}
}

// Composition Errors

// ErrCompositionFailed is returned when the reply composer's inference call fails
type ErrCompositionFailed struct {
	*BaseError
}

func NewCompositionFailed(err error) *ErrCompositionFailed {
	return &ErrCompositionFailed{
		BaseError: NewBaseError(ErrorTypeComposition, "reply composition failed", err),
	}
}

// Context Errors

// ErrContextCancelled is returned when the turn's context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type typedError interface {
	errType() ErrorType
}

func (e *BaseError) errType() ErrorType {
	return e.Type
}

// IsErrorType checks if an error is of a specific type. Wrapper structs that
// embed BaseError satisfy the check through method promotion.
func IsErrorType(err error, errType ErrorType) bool {
	if te, ok := err.(typedError); ok {
		return te.errType() == errType
	}
	if wrapper, ok := err.(interface{ Unwrap() error }); ok {
		if inner := wrapper.Unwrap(); inner != nil {
			return IsErrorType(inner, errType)
		}
	}
	return false
}
