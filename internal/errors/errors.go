// Package errors provides structured error types for jwctl.
// It implements error classification, wrapping, and transient-failure detection.
package errors

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind represents the category of an error.
type Kind uint8

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown Kind = iota
	// KindConfig indicates a configuration error.
	KindConfig
	// KindValidation indicates invalid input.
	KindValidation
	// KindNetwork indicates a transport or server-side failure talking to the gateway.
	KindNetwork
	// KindNotFound indicates the gateway does not know the requested resource.
	KindNotFound
	// KindExpired indicates a pending request is no longer pending.
	KindExpired
	// KindNotAuthenticated indicates the operator's own credentials were rejected.
	KindNotAuthenticated
	// KindRejected indicates the gateway refused a request it will keep refusing.
	KindRejected
	// KindConflict indicates another actor resolved the request first.
	KindConflict
	// KindStale indicates the request changed underneath an in-flight decision.
	KindStale
	// KindCanceled indicates the operation was canceled locally.
	KindCanceled
	// KindTimeout indicates a deadline elapsed.
	KindTimeout
	// KindIndeterminate indicates the effect of a request on the gateway is unknown.
	KindIndeterminate
	// KindIO indicates a file I/O error.
	KindIO
	// KindInternal indicates an internal error.
	KindInternal
)

// String returns a human-readable string for the error kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindNotFound:
		return "not_found"
	case KindExpired:
		return "expired"
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindRejected:
		return "rejected"
	case KindConflict:
		return "conflict"
	case KindStale:
		return "stale"
	case KindCanceled:
		return "canceled"
	case KindTimeout:
		return "timeout"
	case KindIndeterminate:
		return "indeterminate"
	case KindIO:
		return "io"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the standard error type for jwctl.
type Error struct {
	// Kind is the category of the error.
	Kind Kind
	// Op is the operation being performed when the error occurred.
	Op string
	// Message is a human-readable error message.
	Message string
	// Err is the underlying error.
	Err error
	// Recoverable marks transient failures that are worth retrying.
	Recoverable bool
	// Details contains additional context about the error.
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches this error.
// For *Error types, it checks if both the Kind and Op match.
// For sentinel errors (errors without Op), only Kind is compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Op == t.Op
}

// WithDetail adds a single detail to the error and returns the modified error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Detail returns a detail value, or nil when it is not set.
func (e *Error) Detail(key string) any {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// New creates a new Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Newf creates a new Error with the given kind and formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, kind Kind, op string, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, kind Kind, op string, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// GetKind returns the Kind of an error.
// If the error is not an *Error, it returns KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRecoverable returns true if the error is recoverable.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}
	return false
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// Common error constructors for frequently used error types.

// Config creates a configuration error.
func Config(op, message string) *Error {
	return &Error{Kind: KindConfig, Op: op, Message: message}
}

// ConfigWrap wraps an error as a configuration error.
func ConfigWrap(err error, op, message string) *Error {
	return Wrap(err, KindConfig, op, message)
}

// Validation creates a validation error.
func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// NotFound creates a not found error.
func NotFound(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

// Expired creates an expired-request error.
func Expired(op, message string) *Error {
	return &Error{Kind: KindExpired, Op: op, Message: message}
}

// NotAuthenticated creates an authentication error.
func NotAuthenticated(op, message string) *Error {
	return &Error{Kind: KindNotAuthenticated, Op: op, Message: message}
}

// Rejected creates a non-retryable rejection error.
func Rejected(op, message string) *Error {
	return &Error{Kind: KindRejected, Op: op, Message: message}
}

// RejectedWrap wraps an error as a non-retryable rejection.
func RejectedWrap(err error, op, message string) *Error {
	return Wrap(err, KindRejected, op, message)
}

// Conflict creates a conflict error.
func Conflict(op, message string) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: message}
}

// Network creates a transient network error.
func Network(op, message string) *Error {
	return &Error{
		Kind:        KindNetwork,
		Op:          op,
		Message:     message,
		Recoverable: true,
	}
}

// NetworkWrap wraps an error as a transient network error.
func NetworkWrap(err error, op, message string) *Error {
	e := Wrap(err, KindNetwork, op, message)
	e.Recoverable = true
	return e
}

// Timeout creates a timeout error.
func Timeout(op, message string) *Error {
	return &Error{Kind: KindTimeout, Op: op, Message: message}
}

// Indeterminate creates an error for a write whose effect is unknown.
func Indeterminate(op, message string) *Error {
	return &Error{Kind: KindIndeterminate, Op: op, Message: message}
}

// IOWrap wraps an error as an I/O error.
func IOWrap(err error, op, message string) *Error {
	return Wrap(err, KindIO, op, message)
}

// Internal creates an internal error.
func Internal(op, message string) *Error {
	return &Error{Kind: KindInternal, Op: op, Message: message}
}

// InternalWrap wraps an error as an internal error.
func InternalWrap(err error, op, message string) *Error {
	return Wrap(err, KindInternal, op, message)
}

// Sensitive data redaction patterns.
// Word boundaries (\b) are used where applicable so that only complete tokens match.
var sensitivePatterns = []*regexp.Regexp{
	// Bearer tokens in headers or log lines
	regexp.MustCompile(`\bBearer\s+[a-zA-Z0-9._~+/=-]{8,}`),
	// token query parameters
	regexp.MustCompile(`([?&]token=)[^&\s"]+`),
	// Basic auth with password in URL
	regexp.MustCompile(`://[^:/\s]+:[^@/\s]+@`),
}

// RedactSensitive removes sensitive information from a message.
func RedactSensitive(s string) string {
	result := s
	for i, pattern := range sensitivePatterns {
		if i == 1 {
			result = pattern.ReplaceAllString(result, "${1}[REDACTED]")
			continue
		}
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// RedactError creates a new error with sensitive data redacted from its message.
// If the error is nil, returns nil.
func RedactError(err error) error {
	if err == nil {
		return nil
	}
	redacted := RedactSensitive(err.Error())
	if redacted == err.Error() {
		return err
	}
	return fmt.Errorf("%s", redacted)
}

// RedactToken masks all but the last four characters of a credential.
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
