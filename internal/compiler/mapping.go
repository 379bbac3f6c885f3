package compiler

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/loadplan/internal/ir"
)

// CompileMetamodel compiles every entity under the top-level "entity" struct
// of a CUE value into a metamodel. Entities keep their declaration order.
//
// Example mapping:
//
//	entity: Order: {
//		table: "orders"
//		id:    "order_id"
//		attributes: [
//			{name: "placedAt"},
//			{name: "lineItems", collection: {nature: "bag", element: "LineItem"}, fetch: "join"},
//			{name: "customer", target: "Customer", fetch: "select"},
//		]
//	}
//
// Dangling association targets are not compile errors; Validate reports them
// and the plan builder rejects them when they are reached.
func CompileMetamodel(v cue.Value) (*ir.Metamodel, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := ir.NewMetamodel()
	entitiesVal := v.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return m, nil
	}

	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		descs, err := CompileEntity(iter.Value())
		if err != nil {
			return nil, err
		}
		for _, d := range descs {
			if err := m.Add(d); err != nil {
				return nil, &CompileError{
					Field:   "entity." + iter.Label(),
					Message: err.Error(),
					Pos:     iter.Value().Pos(),
				}
			}
		}
	}
	return m, nil
}

// CompileEntity compiles one entity struct. It returns the entity descriptor
// followed by the descriptors of the collection roles the entity owns.
//
// The entity name is taken from the struct label, so v should be the entity
// value itself, e.g. v.LookupPath(cue.ParsePath("entity.Order")).
func CompileEntity(v cue.Value) ([]ir.Descriptor, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	entity := ir.Descriptor{Kind: ir.KindEntity}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		entity.Key = labels[len(labels)-1].String()
		if unquoted, err := strconv.Unquote(entity.Key); err == nil {
			entity.Key = unquoted
		}
	}
	if entity.Key == "" {
		return nil, &CompileError{Field: "entity", Message: "entity name is required", Pos: v.Pos()}
	}

	var err error
	if entity.Table, err = optionalString(v, "table"); err != nil {
		return nil, err
	}
	if entity.ID, err = optionalString(v, "id"); err != nil {
		return nil, err
	}
	if entity.Supertype, err = optionalString(v, "extends"); err != nil {
		return nil, err
	}

	var collections []ir.Descriptor
	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if attrsVal.Exists() {
		attrIter, err := attrsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for attrIter.Next() {
			attr, coll, err := compileAttribute(entity.Key, attrIter.Value())
			if err != nil {
				return nil, err
			}
			entity.Attributes = append(entity.Attributes, attr)
			if coll != nil {
				collections = append(collections, *coll)
			}
		}
	}

	return append([]ir.Descriptor{entity}, collections...), nil
}

// compileAttribute compiles one attribute. Collection attributes also yield
// the descriptor of their role ("Owner.name").
func compileAttribute(owner string, v cue.Value) (ir.Attribute, *ir.Descriptor, error) {
	var attr ir.Attribute

	name, err := optionalString(v, "name")
	if err != nil {
		return attr, nil, err
	}
	if name == "" {
		return attr, nil, &CompileError{
			Field:   fmt.Sprintf("entity.%s.attributes", owner),
			Message: "attribute name is required",
			Pos:     v.Pos(),
		}
	}
	attr.Name = name
	field := fmt.Sprintf("entity.%s.%s", owner, name)

	if attr.Fetch, err = fetchStyleField(v, "fetch", field); err != nil {
		return attr, nil, err
	}
	if attr.BatchSize, err = optionalInt(v, "batch_size"); err != nil {
		return attr, nil, err
	}

	collVal := v.LookupPath(cue.ParsePath("collection"))
	if collVal.Exists() {
		coll, err := compileCollection(owner, name, collVal, field)
		if err != nil {
			return attr, nil, err
		}
		attr.Kind = ir.AttributeCollection
		attr.Target = coll.Key
		return attr, coll, nil
	}

	if attr.Target, err = optionalString(v, "target"); err != nil {
		return attr, nil, err
	}
	kind, err := optionalString(v, "kind")
	if err != nil {
		return attr, nil, err
	}

	switch {
	case kind == "" && attr.Target == "":
		attr.Kind = ir.AttributeBasic
	case kind == "":
		attr.Kind = ir.AttributeManyToOne
	default:
		attr.Kind = ir.AttributeKind(kind)
	}

	switch attr.Kind {
	case ir.AttributeBasic:
		if attr.Target != "" {
			return attr, nil, &CompileError{Field: field, Message: "basic attribute cannot declare a target", Pos: v.Pos()}
		}
	case ir.AttributeManyToOne, ir.AttributeOneToOne:
		if attr.Target == "" {
			return attr, nil, &CompileError{Field: field, Message: fmt.Sprintf("%s attribute requires a target", attr.Kind), Pos: v.Pos()}
		}
	default:
		return attr, nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported attribute kind %q: must be basic, many-to-one or one-to-one", kind),
			Pos:     v.Pos(),
		}
	}
	return attr, nil, nil
}

// compileCollection compiles the collection block of an attribute into the
// role's descriptor. Entity elements and map keys become the synthetic
// "<elements>" and "<index>" attributes of the role.
func compileCollection(owner, name string, v cue.Value, field string) (*ir.Descriptor, error) {
	coll := &ir.Descriptor{
		Key:    owner + "." + name,
		Kind:   ir.KindCollection,
		Owner:  owner,
		Nature: ir.NatureBag,
	}

	nature, err := optionalString(v, "nature")
	if err != nil {
		return nil, err
	}
	if nature != "" {
		coll.Nature = ir.CollectionNature(nature)
	}
	if coll.Table, err = optionalString(v, "table"); err != nil {
		return nil, err
	}
	if coll.ID, err = optionalString(v, "key"); err != nil {
		return nil, err
	}

	element, err := optionalString(v, "element")
	if err != nil {
		return nil, err
	}
	if element != "" {
		elementFetch, err := fetchStyleField(v, "element_fetch", field+".element_fetch")
		if err != nil {
			return nil, err
		}
		coll.Attributes = append(coll.Attributes, ir.Attribute{
			Name:   ir.ElementAttributeName,
			Kind:   ir.AttributeElement,
			Target: element,
			Fetch:  elementFetch,
		})
	}

	index, err := optionalString(v, "index")
	if err != nil {
		return nil, err
	}
	if index != "" {
		coll.Attributes = append(coll.Attributes, ir.Attribute{
			Name:   ir.IndexAttributeName,
			Kind:   ir.AttributeIndex,
			Target: index,
		})
	}
	return coll, nil
}

func fetchStyleField(v cue.Value, name, field string) (ir.FetchStyle, error) {
	text, err := optionalString(v, name)
	if err != nil {
		return ir.FetchUnset, err
	}
	style, err := ir.ParseFetchStyle(text)
	if err != nil {
		return ir.FetchUnset, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return style, nil
}

func optionalString(v cue.Value, name string) (string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalInt(v cue.Value, name string) (int, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return 0, nil
	}
	n, err := f.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
