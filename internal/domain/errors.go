package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures so callers can react without string matching.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeDuplicateName      ErrorCode = "duplicate_name"
	CodeInvalidArgument    ErrorCode = "invalid_argument"
	CodeInUse              ErrorCode = "in_use"
	CodeProtected          ErrorCode = "protected"
	CodeNotFound           ErrorCode = "not_found"
	CodeStorageUnavailable ErrorCode = "storage_unavailable"
	CodeTransactionFailed  ErrorCode = "transaction_failed"
)

// Error is the error type returned by the inventory engine.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by code. ErrValidation also matches the
// narrower validation codes.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return t.Code == CodeValidation && e.Code.isValidation()
}

func (c ErrorCode) isValidation() bool {
	switch c {
	case CodeValidation, CodeDuplicateName, CodeInvalidArgument, CodeInUse:
		return true
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrValidation         = &Error{Code: CodeValidation}
	ErrDuplicateName      = &Error{Code: CodeDuplicateName}
	ErrInvalidArgument    = &Error{Code: CodeInvalidArgument}
	ErrInUse              = &Error{Code: CodeInUse}
	ErrProtected          = &Error{Code: CodeProtected}
	ErrNotFound           = &Error{Code: CodeNotFound}
	ErrStorageUnavailable = &Error{Code: CodeStorageUnavailable}
	ErrTransactionFailed  = &Error{Code: CodeTransactionFailed}
)

func Validationf(format string, args ...any) error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func InvalidArgumentf(format string, args ...any) error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func DuplicateName(kind, name string) error {
	return &Error{Code: CodeDuplicateName, Message: fmt.Sprintf("%s %q already exists", kind, name)}
}

func InUse(kind, name string, refs int) error {
	return &Error{Code: CodeInUse, Message: fmt.Sprintf("%s %q is used by %d record(s); reassign them first", kind, name, refs)}
}

func Protected(kind, name string) error {
	return &Error{Code: CodeProtected, Message: fmt.Sprintf("%s %q is a built-in default and cannot be changed", kind, name)}
}

func NotFound(kind string, id any) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %v not found", kind, id)}
}

func StorageUnavailable(err error) error {
	return &Error{Code: CodeStorageUnavailable, Message: "storage unavailable", Err: err}
}

func TransactionFailed(op string, err error) error {
	// Keep the more specific classification when the failure already has one.
	var de *Error
	if errors.As(err, &de) && de.Code != CodeTransactionFailed {
		return err
	}
	return &Error{Code: CodeTransactionFailed, Message: op + " rolled back", Err: err}
}
