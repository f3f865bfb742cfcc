// Package errors provides custom error types for the crmsync system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application. Reconcilers branch on
// the kind of a failure with errors.Is instead of matching message text.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Join is an alias for the standard library errors.Join.
var Join = errors.Join

// Is is an alias for the standard library errors.Is.
var Is = errors.Is

// As is an alias for the standard library errors.As.
var As = errors.As

// Common sentinel errors for the crmsync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuthentication indicates the CRM handshake or login was rejected.
	// It is fatal to a pass.
	ErrAuthentication = errors.New("authentication failed")

	// ErrDuplicate indicates the CRM rejected a create as a duplicate record
	ErrDuplicate = errors.New("duplicate record")

	// ErrStaleIdentifier indicates the canonical identifier no longer resolves
	// (deleted record, access denied, invalid id)
	ErrStaleIdentifier = errors.New("stale identifier")

	// ErrSessionInvalid indicates the CRM no longer accepts the session token
	ErrSessionInvalid = errors.New("session invalid")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// Kind classifies a failed CRM operation.
type Kind int

const (
	// KindOther is any failure without a more specific classification.
	KindOther Kind = iota
	// KindDuplicate is a create rejected by duplicate detection.
	KindDuplicate
	// KindStaleIdentifier is an identifier that is invalid, deleted or not accessible.
	KindStaleIdentifier
	// KindSession is a session token the server no longer accepts.
	KindSession
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDuplicate:
		return "duplicate"
	case KindStaleIdentifier:
		return "stale_identifier"
	case KindSession:
		return "session"
	default:
		return "other"
	}
}

// Op names a CRM record operation.
type Op string

// CRM record operations.
const (
	OpCreate   Op = "create"
	OpRetrieve Op = "retrieve"
	OpUpdate   Op = "update"
	OpQuery    Op = "query"
)

// RemoteError is a failed CRM record operation. The client classifies the
// failure once into Kind; callers use errors.Is with ErrDuplicate,
// ErrStaleIdentifier or ErrSessionInvalid.
type RemoteError struct {
	Op       Op
	ID       string // Record identifier, empty for create
	Kind     Kind
	Code     string // Error code reported by the webservice
	Message  string // Error message reported by the webservice
	Response string // Raw response body
	Err      error
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	detail := e.Message
	if e.Code != "" {
		detail = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if e.ID != "" {
		return fmt.Sprintf("crm %s %s failed: %s", e.Op, e.ID, detail)
	}
	return fmt.Sprintf("crm %s failed: %s", e.Op, detail)
}

// Unwrap implements errors.Unwrap
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *RemoteError) Is(target error) bool {
	switch e.Kind {
	case KindDuplicate:
		return target == ErrDuplicate
	case KindStaleIdentifier:
		return target == ErrStaleIdentifier
	case KindSession:
		return target == ErrSessionInvalid
	}
	return false
}

// NewRemoteError creates a new RemoteError
func NewRemoteError(op Op, id string, kind Kind, code, message string) *RemoteError {
	return &RemoteError{
		Op:      op,
		ID:      id,
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// ValidationError represents a validation failure
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

// APIError represents a transport-level error from the CRM webservice
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Service, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new APIError
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{
		Service:    service,
		StatusCode: statusCode,
		Message:    message,
	}
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

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// AuthenticationError represents a rejected CRM handshake or login.
// It aborts the pass: nothing downstream is trustworthy without a session.
type AuthenticationError struct {
	Service string
	Step    string // "getchallenge" or "login"
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.Service, e.Step, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Step, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}

// NewAuthenticationError creates a new AuthenticationError
func NewAuthenticationError(service, step, message string, err error) *AuthenticationError {
	return &AuthenticationError{
		Service: service,
		Step:    step,
		Message: message,
		Err:     err,
	}
}

// LedgerError represents a failed tabular store operation
type LedgerError struct {
	Operation string // "read", "write_header", "batch_write"
	Sheet     string
	Err       error
}

// Error implements the error interface
func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger %s of %s failed: %v", e.Operation, e.Sheet, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *LedgerError) Unwrap() error {
	return e.Err
}

// NewLedgerError creates a new LedgerError
func NewLedgerError(operation, sheet string, err error) *LedgerError {
	return &LedgerError{Operation: operation, Sheet: sheet, Err: err}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", "csv"
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
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents a failure to build or open a component
type ResourceError struct {
	Operation string // "create", "open"
	Resource  string // "syncer", "journal"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsAuthentication checks if an error is fatal authentication failure
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsDuplicate checks if an error is a duplicate-detection rejection
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsStaleIdentifier checks if an error means the canonical identifier is stale
func IsStaleIdentifier(err error) bool {
	return errors.Is(err, ErrStaleIdentifier)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// KindOf returns the classification of a RemoteError in err's chain.
func KindOf(err error) Kind {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Kind
	}
	return KindOther
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapLedger wraps an error as a LedgerError
func WrapLedger(operation, sheet string, err error) error {
	if err == nil {
		return nil
	}
	return NewLedgerError(operation, sheet, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}
