// Package errors provides centralized error definitions and error handling utilities
// for the espbridge codebase. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - LockError: errors related to the per-port launch lock
//   - StartError: errors related to launching the bridge server child
//   - SessionError: errors related to a running bridge session
//
// Semantic errors represent common error conditions:
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewLockError("acquire failed", errors.ErrAlreadyRunning).WithPort(2217)
//
//	// With context wrapping
//	err := errors.NewStartError("spawn failed", baseErr).WithDevice("/dev/ttyUSB0")
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrAlreadyRunning) { ... }
//
//	// Check for error types
//	var lockErr *errors.LockError
//	if errors.As(err, &lockErr) { ... }
//
//	// Use classification helpers
//	if errors.IsInformational(err) { ... }
//	if errors.IsUserFacing(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
//
// Severity drives the command layer's exit behavior: an Info-severity error
// such as ErrAlreadyRunning is a deliberate short-circuit and exits zero,
// while Error-severity start failures exit non-zero.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Lock-related sentinel errors
var (
	// ErrAlreadyRunning indicates that another live launcher instance already
	// holds the lock for the requested TCP port. This is a deliberate
	// short-circuit, not a failure: the requested state already exists.
	ErrAlreadyRunning = New("bridge already running on this port")
	// ErrLockStale indicates that a lock record's owner process is no longer
	// alive. Callers reclaim stale locks transparently; this sentinel never
	// reaches users.
	ErrLockStale = New("lock record is stale")
	// ErrLockCorrupted indicates that a lock record could not be parsed.
	// Treated the same as stale: reclaimed, never surfaced.
	ErrLockCorrupted = New("lock record is corrupted")
)

// Start-related sentinel errors
var (
	// ErrBinaryNotFound indicates that the bridge server executable could not
	// be located next to our own executable or on PATH.
	ErrBinaryNotFound = New("bridge server binary not found")
	// ErrSpawnFailed indicates an OS-level failure launching the bridge server.
	ErrSpawnFailed = New("failed to spawn bridge server")
	// ErrPortUnavailable indicates that the TCP port is already bound by some
	// process outside our own lock mechanism.
	ErrPortUnavailable = New("tcp port is already in use")
	// ErrSessionActive indicates that this launcher instance already owns a
	// starting or running session.
	ErrSessionActive = New("a bridge session is already active")
)

// Session-related sentinel errors
var (
	// ErrSessionNotRunning indicates that an operation requires a running session.
	ErrSessionNotRunning = New("session is not running")
	// ErrChildCrashed indicates that the bridge server exited unexpectedly
	// while it was starting or running.
	ErrChildCrashed = New("bridge server exited unexpectedly")
	// ErrStopTimeout indicates that the child ignored the graceful stop signal
	// for the whole grace period. Recovered internally by a forced kill.
	ErrStopTimeout = New("graceful stop timed out")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// BridgeError is the base interface for all espbridge errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type BridgeError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// LockError represents errors related to the per-port launch lock.
//
// Example:
//
//	err := errors.NewLockError("acquire failed", errors.ErrAlreadyRunning)
//	err = err.WithPort(2217).WithOwnerPID(4312)
//	fmt.Println(err) // "lock error [port=2217, owner=4312]: acquire failed: bridge already running on this port"
type LockError struct {
	baseError
	Port     int
	Path     string
	OwnerPID int
}

// NewLockError creates a new LockError.
func NewLockError(message string, cause error) *LockError {
	e := &LockError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
	// AlreadyRunning is the requested state already existing, not a failure.
	if errors.Is(cause, ErrAlreadyRunning) {
		e.severity = SeverityInfo
	}
	return e
}

// WithPort adds the TCP port to the error context.
func (e *LockError) WithPort(port int) *LockError {
	e.Port = port
	return e
}

// WithPath adds the lock file path to the error context.
func (e *LockError) WithPath(path string) *LockError {
	e.Path = path
	return e
}

// WithOwnerPID adds the recorded owner process ID to the error context.
func (e *LockError) WithOwnerPID(pid int) *LockError {
	e.OwnerPID = pid
	return e
}

// WithSeverity sets the error severity.
func (e *LockError) WithSeverity(s Severity) *LockError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *LockError) WithRetryable(r bool) *LockError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *LockError) Error() string {
	var parts []string
	if e.Port > 0 {
		parts = append(parts, fmt.Sprintf("port=%d", e.Port))
	}
	if e.OwnerPID > 0 {
		parts = append(parts, fmt.Sprintf("owner=%d", e.OwnerPID))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}

	prefix := "lock error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("lock error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *LockError) Is(target error) bool {
	if _, ok := target.(*LockError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// StartError represents errors launching the bridge server child process.
// After a StartError no session exists: the caller may retry once the
// underlying condition is remedied.
//
// Example:
//
//	err := errors.NewStartError("spawn failed", errors.ErrSpawnFailed)
//	err = err.WithDevice("/dev/ttyUSB0").WithPort(2217)
type StartError struct {
	baseError
	Device string
	Port   int
	Binary string
}

// NewStartError creates a new StartError.
func NewStartError(message string, cause error) *StartError {
	return &StartError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithDevice adds the serial device path to the error context.
func (e *StartError) WithDevice(device string) *StartError {
	e.Device = device
	return e
}

// WithPort adds the TCP port to the error context.
func (e *StartError) WithPort(port int) *StartError {
	e.Port = port
	return e
}

// WithBinary adds the server binary path to the error context.
func (e *StartError) WithBinary(binary string) *StartError {
	e.Binary = binary
	return e
}

// WithSeverity sets the error severity.
func (e *StartError) WithSeverity(s Severity) *StartError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *StartError) WithRetryable(r bool) *StartError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *StartError) Error() string {
	var parts []string
	if e.Device != "" {
		parts = append(parts, fmt.Sprintf("device=%s", e.Device))
	}
	if e.Port > 0 {
		parts = append(parts, fmt.Sprintf("port=%d", e.Port))
	}
	if e.Binary != "" {
		parts = append(parts, fmt.Sprintf("binary=%s", e.Binary))
	}

	prefix := "start error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("start error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *StartError) Is(target error) bool {
	if _, ok := target.(*StartError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// SessionError represents errors from a bridge session after it started,
// such as an unexpected child exit.
//
// Example:
//
//	err := errors.NewSessionError("bridge crashed", errors.ErrChildCrashed)
//	err = err.WithExitCode(2).WithPort(2217)
type SessionError struct {
	baseError
	Device   string
	Port     int
	ExitCode int
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	e := &SessionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		ExitCode: -1, // -1 indicates not set
	}
	// A stop that needed the forced-kill fallback is a warning, not a failure.
	if errors.Is(cause, ErrStopTimeout) {
		e.severity = SeverityWarning
	}
	return e
}

// WithDevice adds the serial device path to the error context.
func (e *SessionError) WithDevice(device string) *SessionError {
	e.Device = device
	return e
}

// WithPort adds the TCP port to the error context.
func (e *SessionError) WithPort(port int) *SessionError {
	e.Port = port
	return e
}

// WithExitCode adds the child's exit code to the error context.
func (e *SessionError) WithExitCode(code int) *SessionError {
	e.ExitCode = code
	return e
}

// WithSeverity sets the error severity.
func (e *SessionError) WithSeverity(s Severity) *SessionError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *SessionError) WithRetryable(r bool) *SessionError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	var parts []string
	if e.Device != "" {
		parts = append(parts, fmt.Sprintf("device=%s", e.Device))
	}
	if e.Port > 0 {
		parts = append(parts, fmt.Sprintf("port=%d", e.Port))
	}
	if e.ExitCode >= 0 {
		parts = append(parts, fmt.Sprintf("exit=%d", e.ExitCode))
	}

	prefix := "session error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("session error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("tcp port out of range")
//	err = err.WithField("tcp_port").WithValue(70000)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for bridge to listen", 10*time.Second)
//	fmt.Println(err) // "timeout error: waiting for bridge to listen (timeout: 10s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true, // Timeouts are generally retryable
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// WithRetryable sets whether the error is retryable (default true for timeouts).
func (e *TimeoutError) WithRetryable(r bool) *TimeoutError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing BridgeError with IsRetryable() returning true
//   - TimeoutError instances
//   - Errors wrapping ErrTimeout
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    time.Sleep(backoff)
//	    return retry(operation)
//	}
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Check if error implements BridgeError
	var bridgeErr BridgeError
	if As(err, &bridgeErr) {
		return bridgeErr.IsRetryable()
	}

	// Check for known retryable sentinel errors
	if Is(err, ErrTimeout) {
		return true
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
// This checks for:
//   - Errors implementing BridgeError with IsUserFacing() returning true
//   - Semantic errors (ValidationError, TimeoutError)
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    displayToUser(err.Error())
//	} else {
//	    displayToUser("An internal error occurred")
//	    log.Error("internal error", "err", err)
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	// Check if error implements BridgeError
	var bridgeErr BridgeError
	if As(err, &bridgeErr) {
		return bridgeErr.IsUserFacing()
	}

	// Semantic errors are always user-facing
	var validation *ValidationError
	var timeout *TimeoutError

	if As(err, &validation) || As(err, &timeout) {
		return true
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement BridgeError.
//
// Example:
//
//	switch errors.GetSeverity(err) {
//	case errors.SeverityError:
//	    log.Error("error occurred", "err", err)
//	case errors.SeverityWarning:
//	    log.Warn("warning", "err", err)
//	}
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	// Check if error implements BridgeError
	var bridgeErr BridgeError
	if As(err, &bridgeErr) {
		return bridgeErr.Severity()
	}

	// Bare sentinels carry their own severity.
	if Is(err, ErrAlreadyRunning) {
		return SeverityInfo
	}
	if Is(err, ErrStopTimeout) {
		return SeverityWarning
	}

	// Default to Error severity for unknown errors
	return SeverityError
}

// IsInformational returns true if the error reports an already-satisfied or
// otherwise benign condition that should not fail the invoking command.
// ErrAlreadyRunning is the canonical case: the launch goal is met, so the
// launcher exits zero.
func IsInformational(err error) bool {
	if err == nil {
		return false
	}
	return GetSeverity(err) <= SeverityInfo
}

// IsDomainError returns true if the error is a domain-specific error
// (LockError, StartError, or SessionError).
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}

	var lockErr *LockError
	var startErr *StartError
	var sessionErr *SessionError

	return As(err, &lockErr) || As(err, &startErr) || As(err, &sessionErr)
}

// IsSemanticError returns true if the error is a semantic error
// (ValidationError or TimeoutError).
func IsSemanticError(err error) bool {
	if err == nil {
		return false
	}

	var validation *ValidationError
	var timeout *TimeoutError

	return As(err, &validation) || As(err, &timeout)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this keeps call sites free of format strings.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to acquire port lock")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to stop session on port %d", port)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
