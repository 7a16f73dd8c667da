package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/garage-invoices/validation"
	"gorm.io/gorm"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrStorage            = errors.New("storage error")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrDuplicateClient  error = &conflictError{"a client with this name and phone already exists"}
	ErrDuplicateEmail   error = &conflictError{"email already registered"}
	ErrClientInUse      error = &conflictError{"client has invoices and cannot be deleted"}
	ErrInvoiceCancelled error = &conflictError{"invoice is cancelled and cannot be edited"}
)

// conflictError is a user-facing conflict that matches ErrConflict.
type conflictError struct{ msg string }

func (e *conflictError) Error() string        { return e.msg }
func (e *conflictError) Is(target error) bool { return target == ErrConflict }

// ValidationError reports rejected input. Violations maps JSON field paths
// to rule names.
type ValidationError struct {
	Message    string
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrValidation.Error()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(v validation.Violations) error {
	return &ValidationError{Message: ErrValidation.Error(), Violations: v}
}

func invalidField(field, rule, msg string) error {
	return &ValidationError{Message: msg, Violations: validation.Violations{field: rule}}
}

// storageErr classifies an unexpected database error. Errors that already
// carry a classification pass through unchanged.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrStorage, ErrInvalidCredentials} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
