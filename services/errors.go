package services

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType represents the category of a chatbot error
type ErrorType string

const (
	ErrorTypeDataFormat  ErrorType = "data_format"
	ErrorTypeEmptyIndex  ErrorType = "empty_index"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeUpstream    ErrorType = "upstream"
	ErrorTypeClientInput ErrorType = "client_input"
	ErrorTypeInternal    ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports a match when target is a DomainError of the same type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Sentinels for errors.Is comparisons. Never attach details to these;
// use the constructors below instead.
var (
	ErrDataFormat = &DomainError{Type: ErrorTypeDataFormat, Message: "malformed dataset"}
	ErrEmptyIndex = &DomainError{Type: ErrorTypeEmptyIndex, Message: "vector index is empty"}
	ErrAuth       = &DomainError{Type: ErrorTypeAuth, Message: "generation credential missing or rejected"}
	ErrUpstream   = &DomainError{Type: ErrorTypeUpstream, Message: "upstream call failed"}
	ErrEmptyQuery = &DomainError{Type: ErrorTypeClientInput, Message: "No input provided."}
	ErrInternal   = &DomainError{Type: ErrorTypeInternal, Message: "internal server error"}
)

// NewDataFormatError reports a dataset that cannot be used to build the corpus
func NewDataFormatError(message string, err error) *DomainError {
	return NewDomainError(ErrorTypeDataFormat, message, err)
}

// NewEmptyIndexError reports a search or build over zero vectors
func NewEmptyIndexError(message string) *DomainError {
	return NewDomainError(ErrorTypeEmptyIndex, message, nil)
}

// NewAuthError reports a missing or rejected generation credential
func NewAuthError(message string, err error) *DomainError {
	return NewDomainError(ErrorTypeAuth, message, err)
}

// NewUpstreamError reports a failed embedding or generation call.
// A deadline cause is recorded as the "timeout" detail.
func NewUpstreamError(message string, err error) *DomainError {
	domainErr := NewDomainError(ErrorTypeUpstream, message, err)
	if errors.Is(err, context.DeadlineExceeded) {
		domainErr.WithDetail("timeout", true)
	}
	return domainErr
}

// NewClientInputError reports a request rejected before any retrieval work
func NewClientInputError(message string) *DomainError {
	return NewDomainError(ErrorTypeClientInput, message, nil)
}

// IsDataFormatError checks if an error is a dataset format error
func IsDataFormatError(err error) bool {
	return GetErrorType(err) == ErrorTypeDataFormat
}

// IsEmptyIndexError checks if an error is an empty index error
func IsEmptyIndexError(err error) bool {
	return GetErrorType(err) == ErrorTypeEmptyIndex
}

// IsAuthError checks if an error is a credential error
func IsAuthError(err error) bool {
	return GetErrorType(err) == ErrorTypeAuth
}

// IsUpstreamError checks if an error is an upstream provider error
func IsUpstreamError(err error) bool {
	return GetErrorType(err) == ErrorTypeUpstream
}

// IsClientInputError checks if an error is a client input error
func IsClientInputError(err error) bool {
	return GetErrorType(err) == ErrorTypeClientInput
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// IsTimeout checks if an upstream error was caused by a deadline
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	details := GetErrorDetails(err)
	timeout, _ := details["timeout"].(bool)
	return timeout
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
