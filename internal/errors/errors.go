package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	Is     = errors.Is
	As     = errors.As
	New    = errors.New
	Unwrap = errors.Unwrap
)

type ErrorCategory string

const (
	CategoryConfig   ErrorCategory = "CONFIG"   // Unusable configuration combination
	CategoryContract ErrorCategory = "CONTRACT" // Caller broke an API contract
	CategoryProtocol ErrorCategory = "PROTOCOL" // Protocol-specific errors
	CategoryNetwork  ErrorCategory = "NETWORK"  // Connection issues
	CategoryResource ErrorCategory = "RESOURCE" // Resource not found, etc.
	CategoryState    ErrorCategory = "STATE"    // Persisted transfer state
	CategoryUnknown  ErrorCategory = "UNKNOWN"  // Unclassified errors
)

// Protocol identifiers
type Protocol string

const (
	ProtocolHTTP    Protocol = "HTTP"
	ProtocolGeneric Protocol = "GENERIC"
)

// RequestError represents an error raised while building, sending or validating a segment request
type RequestError struct {
	Err        error         // Original error
	Category   ErrorCategory // General category
	Protocol   Protocol      // Which protocol generated this error
	Retryable  bool          // Whether retry is recommended
	Timestamp  time.Time     // When the error occurred
	Resource   string        // What resource was being accessed
	StatusCode int           // HTTP status code or protocol equivalent
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *RequestError) Error() string {
	if e.Protocol == ProtocolGeneric {
		return fmt.Sprintf("[%s] %s: %v", e.Category, e.Resource, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s (status: %d): %v", e.Protocol, e.Category, e.Resource, e.StatusCode, e.Err)
}

// Unwrap provides the underlying cause for error unwrapping (compatible with errors.As)
func (e *RequestError) Unwrap() error {
	return e.Err
}

func newGeneric(err error, category ErrorCategory, resource string, retryable bool) *RequestError {
	return &RequestError{
		Err:       err,
		Category:  category,
		Protocol:  ProtocolGeneric,
		Retryable: retryable,
		Timestamp: time.Now(),
		Resource:  resource,
	}
}

// NewConfigError creates an error for a configuration the builder cannot honour
func NewConfigError(err error, resource string) *RequestError {
	return newGeneric(err, CategoryConfig, resource, false)
}

// NewContractError creates an error for a broken caller contract, such as a missing segment
func NewContractError(err error, resource string) *RequestError {
	return newGeneric(err, CategoryContract, resource, false)
}

// NewNetworkError creates a network-related error
func NewNetworkError(err error, resource string, retryable bool) *RequestError {
	return newGeneric(err, CategoryNetwork, resource, retryable)
}

// NewStateError creates an error for persisted transfer state
func NewStateError(err error, resource string) *RequestError {
	return newGeneric(err, CategoryState, resource, false)
}

// NewHTTPError creates an HTTP-specific error
func NewHTTPError(err error, resource string, statusCode int) *RequestError {
	retryable := false
	category := CategoryProtocol

	switch {
	case statusCode >= 500 && statusCode != 501:
		retryable = true
	case statusCode == 429:
		retryable = true
	case statusCode >= 400:
		category = CategoryResource
	}

	return &RequestError{
		Err:        err,
		Category:   category,
		Protocol:   ProtocolHTTP,
		Retryable:  retryable,
		Timestamp:  time.Now(),
		Resource:   resource,
		StatusCode: statusCode,
	}
}

// IsRetryable determines if an error should be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var reqErr *RequestError
	if As(err, &reqErr) {
		return reqErr.Retryable
	}

	return false
}

func hasCategory(err error, category ErrorCategory) bool {
	var reqErr *RequestError
	return As(err, &reqErr) && reqErr.Category == category
}

// IsConfigError determines if the error comes from an unusable configuration
func IsConfigError(err error) bool {
	return hasCategory(err, CategoryConfig)
}

// IsContractError determines if the error is a caller contract violation
func IsContractError(err error) bool {
	return hasCategory(err, CategoryContract)
}

// IsNetworkError determines if the error is network-related
func IsNetworkError(err error) bool {
	return hasCategory(err, CategoryNetwork)
}

// IsStateError determines if the error concerns persisted transfer state
func IsStateError(err error) bool {
	return hasCategory(err, CategoryState)
}

// GetStatusCode extracts the status code from an error if available
func GetStatusCode(err error) (int, bool) {
	var reqErr *RequestError
	if As(err, &reqErr) {
		return reqErr.StatusCode, true
	}
	return 0, false
}

// WithDetails adds additional context to a RequestError
func WithDetails(err error, details map[string]interface{}) error {
	var reqErr *RequestError
	if !As(err, &reqErr) {
		return err
	}

	if reqErr.Details == nil {
		reqErr.Details = make(map[string]interface{})
	}

	for k, v := range details {
		reqErr.Details[k] = v
	}

	return reqErr
}
