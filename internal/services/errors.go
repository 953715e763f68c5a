package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no matching resource is owned by the caller. It is
	// also returned for resources owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the caller identity is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")

	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("User not found")
	ErrInvalidCredentials = errors.New("Invalid credentials")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ImportError reports a CSV import that was rejected as a whole.
type ImportError struct {
	Err error
}

func (e *ImportError) Error() string { return "import failed: " + e.Err.Error() }
func (e *ImportError) Unwrap() error { return e.Err }

// ExportError reports a failure while producing an export.
type ExportError struct {
	Err error
}

func (e *ExportError) Error() string { return "export failed: " + e.Err.Error() }
func (e *ExportError) Unwrap() error { return e.Err }
