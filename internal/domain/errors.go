// Package domain defines core types, interfaces, and errors for the lakehouse explorer.
package domain

import "fmt"

// NotFoundError indicates a namespace or table could not be resolved by the catalog.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates the caller is not authenticated or not allowed.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// InvalidNamespaceError indicates namespace text that cannot be decoded.
type InvalidNamespaceError struct {
	Message string
}

func (e *InvalidNamespaceError) Error() string { return e.Message }

// ScanFailedError indicates the table's rows could not be materialised.
type ScanFailedError struct {
	Message string
	Err     error
}

func (e *ScanFailedError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ScanFailedError) Unwrap() error { return e.Err }

// QueryExecutionError indicates the engine rejected or failed a user query.
type QueryExecutionError struct {
	Message string
	Err     error
}

func (e *QueryExecutionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// EngineUnavailableError indicates the execution engine was never started or
// could not host the operation (session, registration). It is the only error
// class that triggers a fallback execution path.
type EngineUnavailableError struct {
	Engine  string
	Message string
	Err     error
}

func (e *EngineUnavailableError) Error() string {
	msg := e.Engine + " unavailable: " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EngineUnavailableError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrTableNotFound creates a NotFoundError for a table identifier.
func ErrTableNotFound(id TableIdentifier) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf("table %q not found", id.String())}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrInvalidNamespace creates an InvalidNamespaceError with a formatted message.
func ErrInvalidNamespace(format string, args ...interface{}) *InvalidNamespaceError {
	return &InvalidNamespaceError{Message: fmt.Sprintf(format, args...)}
}

// ErrScanFailed wraps a scan failure for the given table.
func ErrScanFailed(id TableIdentifier, err error) *ScanFailedError {
	return &ScanFailedError{Message: fmt.Sprintf("scan %s", id.String()), Err: err}
}

// ErrQueryExecution wraps an engine execution failure.
func ErrQueryExecution(err error) *QueryExecutionError {
	return &QueryExecutionError{Message: "query execution failed", Err: err}
}

// ErrEngineUnavailable creates an EngineUnavailableError for the named engine.
func ErrEngineUnavailable(engine string, err error, format string, args ...interface{}) *EngineUnavailableError {
	return &EngineUnavailableError{Engine: engine, Message: fmt.Sprintf(format, args...), Err: err}
}
