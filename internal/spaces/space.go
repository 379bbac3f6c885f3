package spaces

import "github.com/roach88/loadplan/internal/ir"

// Kind distinguishes entity query spaces from collection query spaces.
type Kind string

const (
	KindEntity     Kind = "entity"
	KindCollection Kind = "collection"
)

// QuerySpace is a logical placeholder for one entity or collection taking
// part in the generated query; the SQL layer maps it to a table alias.
//
// Fields are unexported: a space is mutated only by its Registry while the
// plan is being built, and is read-only afterwards.
type QuerySpace struct {
	uid        string
	kind       Kind
	descriptor *ir.Descriptor
	joins      []Join
}

// UID returns the space's identifier, unique within one plan.
func (s *QuerySpace) UID() string {
	return s.uid
}

// Kind returns whether the space holds an entity or a collection.
func (s *QuerySpace) Kind() Kind {
	return s.kind
}

// Descriptor returns the persister metadata the space was created for. The
// descriptor is shared with the metamodel; callers must not modify it.
func (s *QuerySpace) Descriptor() *ir.Descriptor {
	return s.descriptor
}

// Joins returns the outgoing joins in registration order.
func (s *QuerySpace) Joins() []Join {
	return append([]Join(nil), s.joins...)
}

// Join is a directed edge between two query spaces, tagged with the attribute
// (role) that owns it and the property path where it was traversed.
type Join struct {
	Left  string          `json:"left"`
	Right string          `json:"right"`
	Role  string          `json:"role"`
	Path  ir.PropertyPath `json:"path"`
	Fetch ir.FetchStyle   `json:"fetch"`
}

// Inline reports whether the join is rendered as an SQL join in the owning
// query. Non-inline joins describe a separate (select, subselect or batch)
// query keyed on the left space.
func (j Join) Inline() bool {
	return j.Fetch == ir.FetchJoin
}

// sameEdge reports whether two joins describe the same edge. Fetch style is
// not part of the identity.
func (j Join) sameEdge(o Join) bool {
	return j.Left == o.Left && j.Right == o.Right && j.Role == o.Role && j.Path == o.Path
}
