package authz

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"github.com/phonginreallife/contracthub/db"
)

// Error classes. Handlers map them to transport codes with errors.Is.
var (
	ErrForbidden  = errors.New("forbidden: you don't have permission to perform this action")
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("resource already exists")
	ErrBadRequest = errors.New("invalid input")
)

// Domain errors, each wrapping its class
var (
	ErrContractNotFound     = fmt.Errorf("contract: %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user: %w", ErrNotFound)
	ErrRoleNotFound         = fmt.Errorf("contract role: %w", ErrNotFound)
	ErrOrganizationNotFound = fmt.Errorf("organization: %w", ErrNotFound)

	ErrIneligibleUser = fmt.Errorf("%w: user does not belong to either organization of the contract", ErrForbidden)
	ErrUnknownSubject = fmt.Errorf("%w: acting user does not exist", ErrForbidden)

	ErrDuplicateRoleAssignment = fmt.Errorf("%w: user already holds this role on the contract", ErrConflict)
	ErrUsernameTaken           = fmt.Errorf("%w: username is taken", ErrConflict)

	ErrInvalidRole = fmt.Errorf("%w: %w", ErrBadRequest, db.ErrInvalidRole)
)

// isUniqueViolation reports whether err is a Postgres unique_violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation
}

// isForeignKeyViolation reports whether err is a Postgres foreign_key_violation
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.ForeignKeyViolation
}

// isInvalidTextRepresentation reports whether err is a Postgres
// invalid_text_representation, raised when an id is not a valid UUID
func isInvalidTextRepresentation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.InvalidTextRepresentation
}

// isMissingRow reports whether a single-row lookup named no row. A malformed
// id cannot name one.
func isMissingRow(err error) bool {
	return err == sql.ErrNoRows || isInvalidTextRepresentation(err)
}
