package compiler

import (
	"fmt"

	"github.com/roach88/loadplan/internal/ir"
)

// Validation error codes (E200-E299)
const (
	// Descriptor errors (E201-E209)
	ErrMissingTable       = "E201" // entity has no table
	ErrUnknownSupertype   = "E202" // extends names no entity
	ErrInheritanceLoop    = "E203" // supertype chain revisits a descriptor
	ErrInvalidNature      = "E204" // collection nature not bag/set/list/map
	ErrUnknownOwner       = "E205" // collection role owner is not an entity
	ErrIndexOnNonMap      = "E206" // index declared on a non-map collection
	ErrSupertypeNotEntity = "E207" // extends names a collection role

	// Attribute errors (E210-E219)
	ErrEmptyAttributeName   = "E210" // attribute name is required
	ErrDuplicateAttribute   = "E211" // attribute declared twice on one descriptor
	ErrInvalidAttributeKind = "E212" // kind unknown or not allowed here
	ErrInvalidFetchStyle    = "E213" // fetch style out of range
	ErrInvalidBatchSize     = "E214" // negative, or set without batch fetch
	ErrDanglingTarget       = "E215" // target names no descriptor
	ErrTargetKindMismatch   = "E216" // entity attribute targets a collection or vice versa
)

// ValidationError represents a metamodel validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled metamodel for dangling references and
// inconsistent declarations.
// Returns all errors found (does not fail-fast), in descriptor order.
func Validate(m *ir.Metamodel) []ValidationError {
	var errs []ValidationError
	for _, d := range m.Descriptors() {
		if d.IsCollection() {
			errs = append(errs, validateCollection(m, d)...)
		} else {
			errs = append(errs, validateEntity(m, d)...)
		}
		errs = append(errs, validateAttributes(m, d)...)
	}
	return errs
}

func validateEntity(m *ir.Metamodel, d *ir.Descriptor) []ValidationError {
	var errs []ValidationError

	// E201: tables are inherited, so only root entities must declare one
	if d.Table == "" && d.Supertype == "" {
		errs = append(errs, ValidationError{
			Field:   d.Key + ".table",
			Message: fmt.Sprintf("entity %q must declare a table", d.Key),
			Code:    ErrMissingTable,
		})
	}

	if d.Supertype == "" {
		return errs
	}

	super, ok := m.Lookup(d.Supertype)
	switch {
	case !ok:
		errs = append(errs, ValidationError{
			Field:   d.Key + ".extends",
			Message: fmt.Sprintf("unknown supertype %q", d.Supertype),
			Code:    ErrUnknownSupertype,
		})
	case super.IsCollection():
		errs = append(errs, ValidationError{
			Field:   d.Key + ".extends",
			Message: fmt.Sprintf("supertype %q is a collection role", d.Supertype),
			Code:    ErrSupertypeNotEntity,
		})
	default:
		if loopsBack(m, d.Key) {
			errs = append(errs, ValidationError{
				Field:   d.Key + ".extends",
				Message: fmt.Sprintf("inheritance loop through %q", d.Supertype),
				Code:    ErrInheritanceLoop,
			})
		}
	}
	return errs
}

// loopsBack reports whether following supertypes from key returns to key.
func loopsBack(m *ir.Metamodel, key string) bool {
	seen := map[string]bool{key: true}
	d, _ := m.Lookup(key)
	for d != nil && d.Supertype != "" {
		if d.Supertype == key {
			return true
		}
		if seen[d.Supertype] {
			// Loop that does not include key; reported on its own members.
			return false
		}
		seen[d.Supertype] = true
		d, _ = m.Lookup(d.Supertype)
	}
	return false
}

func validateCollection(m *ir.Metamodel, d *ir.Descriptor) []ValidationError {
	var errs []ValidationError

	if !ir.ValidNatures[d.Nature] {
		errs = append(errs, ValidationError{
			Field:   d.Key + ".nature",
			Message: fmt.Sprintf("invalid nature %q, must be \"bag\", \"set\", \"list\", or \"map\"", d.Nature),
			Code:    ErrInvalidNature,
		})
	}

	if owner, ok := m.Lookup(d.Owner); !ok || owner.IsCollection() {
		errs = append(errs, ValidationError{
			Field:   d.Key + ".owner",
			Message: fmt.Sprintf("collection owner %q is not an entity", d.Owner),
			Code:    ErrUnknownOwner,
		})
	}

	if d.Nature != ir.NatureMap {
		for _, a := range d.Attributes {
			if a.Kind == ir.AttributeIndex {
				errs = append(errs, ValidationError{
					Field:   d.Key + ".index",
					Message: fmt.Sprintf("index declared on a %s; only maps are indexed by an entity", d.Nature),
					Code:    ErrIndexOnNonMap,
				})
			}
		}
	}
	return errs
}

func validateAttributes(m *ir.Metamodel, d *ir.Descriptor) []ValidationError {
	var errs []ValidationError
	names := make(map[string]bool)

	for i, a := range d.Attributes {
		field := fmt.Sprintf("%s.attributes[%d]", d.Key, i)

		// E210, E211: names
		if a.Name == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "attribute name is required",
				Code:    ErrEmptyAttributeName,
			})
		} else if names[a.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate attribute name: %q", a.Name),
				Code:    ErrDuplicateAttribute,
			})
		}
		names[a.Name] = true

		if !kindAllowed(d, a.Kind) {
			errs = append(errs, ValidationError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("attribute kind %q is not allowed on %s %q", a.Kind, d.Kind, d.Key),
				Code:    ErrInvalidAttributeKind,
			})
			continue
		}

		// E213, E214: fetch declaration
		if a.Fetch < ir.FetchUnset || a.Fetch > ir.FetchBatch {
			errs = append(errs, ValidationError{
				Field:   field + ".fetch",
				Message: fmt.Sprintf("invalid fetch style %d", int(a.Fetch)),
				Code:    ErrInvalidFetchStyle,
			})
		}
		if a.BatchSize < 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".batch_size",
				Message: fmt.Sprintf("batch size must be positive, got %d", a.BatchSize),
				Code:    ErrInvalidBatchSize,
			})
		} else if a.BatchSize > 0 && a.Fetch != ir.FetchUnset && a.Fetch != ir.FetchBatch {
			errs = append(errs, ValidationError{
				Field:   field + ".batch_size",
				Message: fmt.Sprintf("batch size requires fetch \"batch\", got %q", a.Fetch),
				Code:    ErrInvalidBatchSize,
			})
		}

		if !a.IsAssociation() {
			continue
		}

		// E215, E216: targets
		target, ok := m.Lookup(a.Target)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".target",
				Message: fmt.Sprintf("target %q does not exist", a.Target),
				Code:    ErrDanglingTarget,
			})
			continue
		}
		if a.IsCollection() != target.IsCollection() {
			errs = append(errs, ValidationError{
				Field:   field + ".target",
				Message: fmt.Sprintf("%s attribute cannot target %s %q", a.Kind, target.Kind, target.Key),
				Code:    ErrTargetKindMismatch,
			})
		}
	}
	return errs
}

// kindAllowed reports whether attributes of kind k may appear on d.
// Element and index attributes belong to collection roles only.
func kindAllowed(d *ir.Descriptor, k ir.AttributeKind) bool {
	switch k {
	case ir.AttributeBasic, ir.AttributeManyToOne, ir.AttributeOneToOne, ir.AttributeCollection:
		return !d.IsCollection()
	case ir.AttributeElement, ir.AttributeIndex:
		return d.IsCollection()
	default:
		return false
	}
}
