// Package errors provides standardized error handling patterns for the
// HVAC service. It includes error classification, standard error variables,
// and helper functions for consistent error wrapping and classification
// across the ingestion and dispatch pipelines.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes.
// The classes mirror the failure domains of the service: malformed inbound
// bus payloads, invalid request parameters, store failures, and bus publish
// failures.
type ErrorClass int

const (
	// ErrorParse represents a malformed inbound payload. The message that
	// produced it is dropped; the bus has no reply channel.
	ErrorParse ErrorClass = iota
	// ErrorValidation represents a request rejected before any side effect
	// occurs (missing required field, empty command).
	ErrorValidation
	// ErrorStore represents a persistence failure (unavailable, timeout,
	// constraint violation).
	ErrorStore
	// ErrorPublish represents a bus publish failure. Dispatch fails before
	// any audit log is written.
	ErrorPublish
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorParse:
		return "parse"
	case ErrorValidation:
		return "validation"
	case ErrorStore:
		return "store"
	case ErrorPublish:
		return "publish"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Inbound payload errors
	ErrInvalidPayload = errors.New("invalid payload format")
	ErrUnknownTopic   = errors.New("unrecognized topic")
	ErrParsingFailed  = errors.New("parsing failed")

	// Request validation errors
	ErrMissingTargetTemp = errors.New("missing target_temp")
	ErrMissingCommand    = errors.New("missing command")
	ErrEmptyZone         = errors.New("zone cannot be empty")

	// Storage errors
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNotFound         = errors.New("record not found")

	// Bus errors
	ErrNotConnected  = errors.New("not connected to bus")
	ErrPublishFailed = errors.New("publish failed")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

func classOf(err error, class ErrorClass) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == class
	}
	return false
}

// IsParse checks if an error classifies as a malformed-payload failure
func IsParse(err error) bool {
	return classOf(err, ErrorParse) ||
		errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, ErrParsingFailed)
}

// IsValidation checks if an error classifies as a caller error
func IsValidation(err error) bool {
	return classOf(err, ErrorValidation) ||
		errors.Is(err, ErrMissingTargetTemp) ||
		errors.Is(err, ErrMissingCommand) ||
		errors.Is(err, ErrEmptyZone)
}

// IsStore checks if an error classifies as a persistence failure
func IsStore(err error) bool {
	return classOf(err, ErrorStore) ||
		errors.Is(err, ErrStoreUnavailable)
}

// IsPublish checks if an error classifies as a bus publish failure
func IsPublish(err error) bool {
	return classOf(err, ErrorPublish) ||
		errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrPublishFailed)
}

// IsNotFound checks if an error indicates a missing record
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Classify returns the error class for an error. Unclassified errors
// default to ErrorStore, the broadest internal failure domain.
func Classify(err error) ErrorClass {
	switch {
	case IsParse(err):
		return ErrorParse
	case IsValidation(err):
		return ErrorValidation
	case IsPublish(err):
		return ErrorPublish
	default:
		return ErrorStore
	}
}

// newClassified creates a new classified error.
// This is an internal helper - use the Wrap* functions instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapParse wraps an error as a parse failure with context
func WrapParse(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorParse, wrappedErr, component, method, wrappedErr.Error())
}

// WrapValidation wraps an error as a validation failure with context
func WrapValidation(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorValidation, wrappedErr, component, method, wrappedErr.Error())
}

// WrapStore wraps an error as a store failure with context
func WrapStore(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorStore, wrappedErr, component, method, wrappedErr.Error())
}

// WrapPublish wraps an error as a publish failure with context
func WrapPublish(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorPublish, wrappedErr, component, method, wrappedErr.Error())
}
