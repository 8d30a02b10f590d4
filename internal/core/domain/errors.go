package domain

import (
	"errors"
	"fmt"
)

// DomainError is a command-level error carrying a structured code.
//
// Codes have the form KV-<AREA>-<NNNN>; the leading digit mirrors HTTP
// semantics (4 = caller error, 5 = server error). Message is what RESP
// clients see; Details and Cause stay server side.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Details == "" {
		return "[" + e.Code + "] " + e.Message
	}
	return "[" + e.Code + "] " + e.Message + ": " + e.Details
}

func (e *DomainError) Unwrap() error { return e.Cause }

// Is matches any DomainError with the same code, so a sentinel matches
// every copy derived from it.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// NewDomainError creates an error with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WithDetails returns a copy carrying details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithMessage returns a copy with the client-facing message replaced.
func (e *DomainError) WithMessage(format string, args ...any) *DomainError {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// WithCause returns a copy wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// IsDomainError reports whether err wraps a DomainError, with the given
// code unless code is empty.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && (code == "" || de.Code == code)
}

// GetErrorCode returns the code of the DomainError in err's chain, or "".
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Command Errors
// ============================================================================

const (
	CodeArity          = "KV-ARG-4001"
	CodeTypeMismatch   = "KV-TYP-4002"
	CodeNotAnInteger   = "KV-NUM-4003"
	CodeUnknownCommand = "KV-CMD-4004"
	CodeSyntax         = "KV-ARG-4005"
	CodeIndexRange     = "KV-IDX-4006"
	CodeNoSuchKey      = "KV-KEY-4007"
	CodeAuth           = "KV-AUTH-4010"
	CodePersistence    = "KV-SYS-5001"
	CodeInternal       = "KV-SYS-5002"
)

var (
	// ErrArity indicates a wrong argument count. Nothing was mutated.
	ErrArity = NewDomainError(CodeArity, "wrong number of arguments")

	// ErrWrongType indicates an operation against a key holding another kind.
	ErrWrongType = NewDomainError(CodeTypeMismatch, "Operation against a key holding the wrong kind of value")

	// ErrNotInteger indicates increment/decrement on non-numeric content.
	ErrNotInteger = NewDomainError(CodeNotAnInteger, "value is not an integer or out of range")

	// ErrUnknownCommand indicates an unrecognized command name.
	ErrUnknownCommand = NewDomainError(CodeUnknownCommand, "unknown command")

	// ErrSyntax indicates a malformed option or argument.
	ErrSyntax = NewDomainError(CodeSyntax, "syntax error")

	// ErrIndexOutOfRange indicates a list index outside the list.
	ErrIndexOutOfRange = NewDomainError(CodeIndexRange, "index out of range")

	// ErrNoSuchKey indicates the key does not exist.
	ErrNoSuchKey = NewDomainError(CodeNoSuchKey, "no such key")

	// ErrNoAuth indicates a command was sent before AUTH succeeded.
	ErrNoAuth = NewDomainError(CodeAuth, "Authentication required.")

	// ErrInvalidPassword indicates AUTH with a wrong password.
	ErrInvalidPassword = NewDomainError(CodeAuth, "invalid password")

	// ErrPersistence indicates a snapshot write failed.
	ErrPersistence = NewDomainError(CodePersistence, "persistence failure")

	// ErrInternal indicates an unexpected server error.
	ErrInternal = NewDomainError(CodeInternal, "internal error")
)

// ArityError returns ErrArity naming the offending command.
func ArityError(cmd string) *DomainError {
	return ErrArity.WithMessage("wrong number of arguments for '%s' command", cmd)
}

// UnknownCommandError returns ErrUnknownCommand naming the offending command.
func UnknownCommandError(cmd string) *DomainError {
	return ErrUnknownCommand.WithMessage("unknown command '%s'", cmd)
}
