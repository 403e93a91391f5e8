package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")

	// ErrDuplicate is returned when an insert collides with an existing
	// record, including a user booking the same schedule twice.
	ErrDuplicate = errors.New("persistence: duplicate record")

	// ErrCapacityExceeded is returned when a booking insert would push a
	// schedule past its player limit.
	ErrCapacityExceeded = errors.New("persistence: capacity exceeded")

	// ErrConstraintViolation is returned when stored data would violate a
	// table constraint other than uniqueness or a foreign key.
	ErrConstraintViolation = errors.New("persistence: constraint violation")

	// ErrForeignKeyViolation is returned when a record still referenced by
	// other rows is deleted, or a reference points at a missing row.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
)
