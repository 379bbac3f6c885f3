package plan

import (
	"github.com/roach88/loadplan/internal/ir"
	"github.com/roach88/loadplan/internal/spaces"
)

// Reference is one traversal point of a load plan.
//
// This is a sealed interface: the variants are EntityReturn, CollectionReturn,
// EntityFetch and CollectionFetch. Use a type switch to dispatch on the kind.
type Reference interface {
	// QuerySpace returns the space holding the referenced entity or collection.
	QuerySpace() *spaces.QuerySpace

	// PropertyPath returns the reference's address in the object graph.
	PropertyPath() ir.PropertyPath

	// Fetches returns the child fetches in declared attribute order.
	Fetches() []Fetch

	referenceNode()
}

// Return is a plan root: EntityReturn or CollectionReturn.
type Return interface {
	Reference
	returnNode()
}

// Fetch is a non-root reference owned by its parent's fetch list:
// EntityFetch or CollectionFetch.
type Fetch interface {
	Reference

	// Parent returns the owning reference.
	Parent() Reference

	// Attribute returns the association that produced the fetch.
	Attribute() ir.Attribute

	// Strategy returns the effective fetch strategy.
	Strategy() ir.FetchStrategy

	// Reused reports whether the fetch closes a cycle or shared reference:
	// its space was created earlier in the build and it has no fetches.
	Reused() bool

	fetchNode()
}

type node struct {
	space   *spaces.QuerySpace
	path    ir.PropertyPath
	fetches []Fetch
}

func (n *node) QuerySpace() *spaces.QuerySpace { return n.space }
func (n *node) PropertyPath() ir.PropertyPath  { return n.path }
func (n *node) Fetches() []Fetch               { return append([]Fetch(nil), n.fetches...) }

func (n *node) addFetch(f Fetch) { n.fetches = append(n.fetches, f) }

// EntityReturn is an entity loaded as the plan root.
type EntityReturn struct {
	node
}

// EntityName returns the root entity's name.
func (r *EntityReturn) EntityName() string { return r.space.Descriptor().Key }

func (*EntityReturn) referenceNode() {}
func (*EntityReturn) returnNode()    {}

// CollectionReturn is a collection loaded directly as the plan root. Its path
// is the bracketed role, e.g. "[Order.lineItems]".
type CollectionReturn struct {
	node
}

// Role returns the qualified collection role.
func (r *CollectionReturn) Role() string { return r.space.Descriptor().Role() }

// Nature returns the collection's semantic (bag, set, list or map).
func (r *CollectionReturn) Nature() ir.CollectionNature { return r.space.Descriptor().Nature }

func (*CollectionReturn) referenceNode() {}
func (*CollectionReturn) returnNode()    {}

type fetchBase struct {
	node
	parent   Reference
	attr     ir.Attribute
	strategy ir.FetchStrategy
	reused   bool
}

func (f *fetchBase) Parent() Reference          { return f.parent }
func (f *fetchBase) Attribute() ir.Attribute    { return f.attr }
func (f *fetchBase) Strategy() ir.FetchStrategy { return f.strategy }
func (f *fetchBase) Reused() bool               { return f.reused }

// EntityFetch is a to-one association (or a collection's element or index
// entity) fetched under its parent.
type EntityFetch struct {
	fetchBase
}

// EntityName returns the fetched entity's name.
func (f *EntityFetch) EntityName() string { return f.space.Descriptor().Key }

func (*EntityFetch) referenceNode() {}
func (*EntityFetch) fetchNode()     {}

// CollectionFetch is a collection association fetched under its parent.
type CollectionFetch struct {
	fetchBase
}

// Role returns the qualified collection role.
func (f *CollectionFetch) Role() string { return f.space.Descriptor().Role() }

// Nature returns the collection's semantic (bag, set, list or map).
func (f *CollectionFetch) Nature() ir.CollectionNature { return f.space.Descriptor().Nature }

func (*CollectionFetch) referenceNode() {}
func (*CollectionFetch) fetchNode()     {}

// parentNode returns the mutable node behind a reference created by this
// package.
func parentNode(r Reference) *node {
	switch ref := r.(type) {
	case *EntityReturn:
		return &ref.node
	case *CollectionReturn:
		return &ref.node
	case *EntityFetch:
		return &ref.node
	case *CollectionFetch:
		return &ref.node
	default:
		return nil
	}
}
