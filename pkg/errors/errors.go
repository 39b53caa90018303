package errors

import (
	"errors"
	"fmt"
)

// AppError provides a structured error whose Message can be shown to end users as-is.
type AppError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Internal error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is reports whether target is an AppError of the same kind. Messages are ignored so that
// errors.Is(err, ErrValidation) matches every validation failure.
func (e *AppError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*AppError)
	if !ok || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError carrying a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = message
	return &cpy
}

// Error kinds shared by the store and service layers.
var (
	ErrValidation = &AppError{
		Code:    "VALIDATION",
		Message: "Invalid input",
	}

	ErrNotFound = &AppError{
		Code:    "NOT_FOUND",
		Message: "Resource not found",
	}

	ErrDuplicateKey = &AppError{
		Code:    "DUPLICATE_KEY",
		Message: "Record already exists",
	}

	ErrForbidden = &AppError{
		Code:    "FORBIDDEN",
		Message: "Permission denied",
	}

	ErrInvalidCredentials = &AppError{
		Code:    "INVALID_CREDENTIALS",
		Message: "Invalid username or password",
	}

	// ErrStorageFault signals that the persistence layer is unreachable or rejected a statement.
	// The cause travels in Internal and in the logs.
	ErrStorageFault = &AppError{
		Code:    "STORAGE_FAULT",
		Message: "Operation failed",
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewValidation reports a field-content failure with a human-readable message.
func NewValidation(message string) *AppError {
	return ErrValidation.WithMessage(message)
}

// NewNotFound reports a missing entity with a specific message.
func NewNotFound(message string) *AppError {
	return ErrNotFound.WithMessage(message)
}

// NewDuplicate reports a uniqueness collision with a specific message.
func NewDuplicate(message string) *AppError {
	return ErrDuplicateKey.WithMessage(message)
}

// NewForbidden reports a business rule that refuses the caller.
func NewForbidden(message string) *AppError {
	return ErrForbidden.WithMessage(message)
}

// Wrap turns any error into a storage fault while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:     ErrStorageFault.Code,
		Message:  message,
		Internal: err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrStorageFault.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrStorageFault.WithInternal(err)
}

// IsValidation reports whether err is a field validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// UserMessage returns the text a caller should render for err. Input and business-rule
// failures keep their specific message; storage faults and unknown errors collapse to the
// generic storage message so internals never leak to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	appErr := FromError(err)
	if appErr.Code == ErrStorageFault.Code {
		return ErrStorageFault.Message
	}
	return appErr.Message
}
