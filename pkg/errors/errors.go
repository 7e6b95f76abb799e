package errors

import "fmt"

// ErrorType classifies where in the pipeline an error occurred
type ErrorType string

const (
	ErrorTypeCredentialParse     ErrorType = "credential_parse"
	ErrorTypeAccountRegistration ErrorType = "account_registration"
	ErrorTypeFetchStart          ErrorType = "fetch_start"
	ErrorTypeFetchStream         ErrorType = "fetch_stream"
	ErrorTypeFileWrite           ErrorType = "file_write"
	ErrorTypeUnknown             ErrorType = "unknown"
)

// Error carries the error type plus the line, account, or target it concerns.
// Errors are contained at that granularity and never abort the batch.
type Error struct {
	Type    ErrorType
	Context string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s error (%s): %s", e.Type, e.Context, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error without an underlying cause.
func New(errorType ErrorType, context, message string) *Error {
	return &Error{Type: errorType, Context: context, Message: message}
}

// Wrap creates a typed error around an underlying cause.
func Wrap(errorType ErrorType, context string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Type: errorType, Context: context, Message: err.Error(), Err: err}
}

// TypeOf returns the error's type, or ErrorTypeUnknown for foreign errors.
func TypeOf(err error) ErrorType {
	if e, ok := err.(*Error); ok {
		return e.Type
	}
	return ErrorTypeUnknown
}
