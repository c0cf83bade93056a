package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for invalid input such as an empty role name
	// or an unknown permission key.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when the referenced role does not exist.
	ErrNotFound = errors.New("role not found")

	// ErrConflict is returned when an operation would break a registry
	// invariant, e.g. deleting a role that is still assigned to users.
	ErrConflict = errors.New("conflict")

	// ErrStorage is returned when the underlying store failed.
	ErrStorage = errors.New("storage failure")

	// ErrAuditWarning is returned together with a successful result when the
	// audit record could not be written.
	ErrAuditWarning = errors.New("audit record not written")
)

// IsAuditWarning reports whether err only signals a failed audit write.
// The operation itself succeeded in that case.
func IsAuditWarning(err error) bool {
	return errors.Is(err, ErrAuditWarning)
}

// classify makes sure err carries one of the registry error kinds.
// Errors without a kind are treated as storage failures.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrStorage):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
}

// kind returns a short label of the error kind, used as metrics label.
func kind(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrAuditWarning):
		return "audit_warning"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "storage"
	}
}
