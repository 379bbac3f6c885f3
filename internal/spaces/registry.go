// Package spaces allocates and tracks the query spaces of a single load plan
// build.
//
// A Registry is build scoped: its uid counter starts at zero for every build
// and is never shared, so concurrent builds need no coordination. A Registry
// itself is not safe for concurrent use.
package spaces

import (
	"fmt"

	"github.com/roach88/loadplan/internal/ir"
)

// DefaultUIDPrefix is the namespace of generated uids: "<gen:0>", "<gen:1>", ...
const DefaultUIDPrefix = "gen"

// Registry allocates query spaces and records the joins between them.
type Registry struct {
	prefix string
	next     int
	spaces   []*QuerySpace
	byUID    map[string]*QuerySpace
	reserved map[string]bool
}

// NewRegistry creates an empty registry with the default uid prefix.
func NewRegistry() *Registry {
	return NewRegistryWithPrefix(DefaultUIDPrefix)
}

// NewRegistryWithPrefix creates an empty registry whose generated uids use
// prefix. An empty prefix selects DefaultUIDPrefix.
func NewRegistryWithPrefix(prefix string) *Registry {
	if prefix == "" {
		prefix = DefaultUIDPrefix
	}
	return &Registry{
		prefix:   prefix,
		byUID:    make(map[string]*QuerySpace),
		reserved: make(map[string]bool),
	}
}

// Reserve withholds uids from generation. A reserved uid can still be
// registered explicitly; callers reserve the uids they intend to pin before
// any space is allocated.
func (r *Registry) Reserve(uids ...string) {
	for _, uid := range uids {
		r.reserved[uid] = true
	}
}

// GenerateImplicitUID returns a fresh uid, distinct from every uid generated
// by this registry before. Reserved and already registered uids are skipped.
func (r *Registry) GenerateImplicitUID() string {
	for {
		uid := fmt.Sprintf("<%s:%d>", r.prefix, r.next)
		r.next++
		if _, taken := r.byUID[uid]; !taken && !r.reserved[uid] {
			return uid
		}
	}
}

// MakeEntityQuerySpace registers a new entity query space under uid.
func (r *Registry) MakeEntityQuerySpace(uid string, d *ir.Descriptor) (*QuerySpace, error) {
	if d == nil || d.IsCollection() {
		return nil, fmt.Errorf("entity query space %q requires an entity descriptor", uid)
	}
	return r.register(uid, KindEntity, d)
}

// MakeCollectionQuerySpace registers a new collection query space under uid.
func (r *Registry) MakeCollectionQuerySpace(uid string, d *ir.Descriptor) (*QuerySpace, error) {
	if d == nil || !d.IsCollection() {
		return nil, fmt.Errorf("collection query space %q requires a collection descriptor", uid)
	}
	return r.register(uid, KindCollection, d)
}

func (r *Registry) register(uid string, kind Kind, d *ir.Descriptor) (*QuerySpace, error) {
	if uid == "" {
		return nil, fmt.Errorf("query space uid is required")
	}
	if _, exists := r.byUID[uid]; exists {
		return nil, &DuplicateUIDError{UID: uid}
	}
	space := &QuerySpace{uid: uid, kind: kind, descriptor: d}
	r.spaces = append(r.spaces, space)
	r.byUID[uid] = space
	return space, nil
}

// FindByUID returns the space registered under uid.
func (r *Registry) FindByUID(uid string) (*QuerySpace, error) {
	space, ok := r.byUID[uid]
	if !ok {
		return nil, &UIDNotFoundError{UID: uid}
	}
	return space, nil
}

// AddJoin records a directed join from left to right.
//
// AddJoin is idempotent: registering an edge identical to an existing one
// (same endpoints, role and path) returns the existing join. This lets the
// builder record the closing edge of a cycle without re-creating the target.
func (r *Registry) AddJoin(left, right, role string, path ir.PropertyPath, fetch ir.FetchStyle) (Join, error) {
	from, err := r.FindByUID(left)
	if err != nil {
		return Join{}, fmt.Errorf("add join %s: left: %w", role, err)
	}
	if _, err := r.FindByUID(right); err != nil {
		return Join{}, fmt.Errorf("add join %s: right: %w", role, err)
	}

	join := Join{Left: left, Right: right, Role: role, Path: path, Fetch: fetch}
	for _, existing := range from.joins {
		if existing.sameEdge(join) {
			return existing, nil
		}
	}
	from.joins = append(from.joins, join)
	return join, nil
}

// Spaces returns every registered space in creation order.
func (r *Registry) Spaces() []*QuerySpace {
	return append([]*QuerySpace(nil), r.spaces...)
}

// Len returns the number of registered spaces.
func (r *Registry) Len() int {
	return len(r.spaces)
}
