package spaces

import (
	"errors"
	"fmt"
)

// DuplicateUIDError is returned when a query space is registered under a uid
// that is already taken in the registry.
//
// Generated uids never collide, so this indicates either a caller-supplied
// uid clash or an internal invariant violation. Builders treat it as fatal.
type DuplicateUIDError struct {
	UID string
}

// Error implements the error interface.
func (e *DuplicateUIDError) Error() string {
	return fmt.Sprintf("duplicate query space uid %q", e.UID)
}

// UIDNotFoundError is returned when a uid lookup finds no query space.
type UIDNotFoundError struct {
	UID string
}

// Error implements the error interface.
func (e *UIDNotFoundError) Error() string {
	return fmt.Sprintf("no query space with uid %q", e.UID)
}

// IsDuplicateUID returns true if err is or wraps a DuplicateUIDError.
func IsDuplicateUID(err error) bool {
	var de *DuplicateUIDError
	return errors.As(err, &de)
}

// IsUIDNotFound returns true if err is or wraps a UIDNotFoundError.
func IsUIDNotFound(err error) bool {
	var ne *UIDNotFoundError
	return errors.As(err, &ne)
}
