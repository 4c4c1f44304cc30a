package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// History errors
	ErrHistoryQuery ErrorCode = "HISTORY_QUERY"
	ErrHistoryFetch ErrorCode = "HISTORY_FETCH"

	// Scan errors
	ErrScanFailed       ErrorCode = "SCAN_FAILED"
	ErrFileAccess       ErrorCode = "FILE_ACCESS"
	ErrUnsupportedEntry ErrorCode = "UNSUPPORTED_ENTRY"

	// Generation errors
	ErrPathUnquotable ErrorCode = "PATH_UNQUOTABLE"

	// Archive errors
	ErrArchiveWrite ErrorCode = "ARCHIVE_WRITE"
)

// DeftsiloError represents a structured error with code and details
type DeftsiloError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *DeftsiloError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *DeftsiloError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *DeftsiloError) Is(target error) bool {
	var targetErr *DeftsiloError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new DeftsiloError with the given code and message
func New(code ErrorCode, message string) *DeftsiloError {
	return &DeftsiloError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new DeftsiloError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *DeftsiloError {
	return &DeftsiloError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a DeftsiloError
func Wrap(err error, code ErrorCode, message string) *DeftsiloError {
	if err == nil {
		return nil
	}
	return &DeftsiloError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *DeftsiloError {
	if err == nil {
		return nil
	}
	return &DeftsiloError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *DeftsiloError) WithDetail(key string, value interface{}) *DeftsiloError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var dsErr *DeftsiloError
	if errors.As(err, &dsErr) {
		return dsErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a DeftsiloError
func GetErrorCode(err error) ErrorCode {
	var dsErr *DeftsiloError
	if errors.As(err, &dsErr) {
		return dsErr.Code
	}
	return ErrUnknown
}
