package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConflict is returned by the conditional booking insert when another
	// active booking already occupies the room for an overlapping interval.
	ErrConflict = errors.New("persistence: booking conflict")
	// ErrConstraintViolation is returned when stored data would violate a
	// check constraint such as end <= start.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced record is missing.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
)
