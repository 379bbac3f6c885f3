package plan

import (
	"errors"
	"fmt"

	"github.com/roach88/loadplan/internal/ir"
)

// ErrUnknownRoot is returned when the root key passed to Build names no
// descriptor.
var ErrUnknownRoot = errors.New("loadplan: unknown root descriptor")

// UnresolvableAssociationError is returned when mapping metadata references a
// target that cannot be resolved. The build is aborted and no plan is returned.
type UnresolvableAssociationError struct {
	// Path is where the dangling association was reached.
	Path ir.PropertyPath

	// Owner is the descriptor key declaring the association.
	Owner string

	// Attribute is the association's name.
	Attribute string

	// Target is the descriptor key that could not be resolved.
	Target string

	// Reason describes why the target is unusable.
	Reason string
}

// Error implements the error interface.
func (e *UnresolvableAssociationError) Error() string {
	return fmt.Sprintf("unresolvable association %s.%s at %q: target %q %s",
		e.Owner, e.Attribute, e.Path.String(), e.Target, e.Reason)
}

// IsUnresolvableAssociation returns true if err is or wraps an
// UnresolvableAssociationError.
func IsUnresolvableAssociation(err error) bool {
	var ue *UnresolvableAssociationError
	return errors.As(err, &ue)
}

// InvariantError reports a violated internal invariant during a build, such
// as a duplicate query space uid. It is never recovered from.
type InvariantError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load plan invariant violated: %s: %v", e.Message, e.Err)
	}
	return "load plan invariant violated: " + e.Message
}

// Unwrap returns the underlying error.
func (e *InvariantError) Unwrap() error {
	return e.Err
}
