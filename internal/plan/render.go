package plan

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/loadplan/internal/spaces"
)

// ReferenceKind names the variant of ref: "EntityReturn", "CollectionReturn",
// "EntityFetch" or "CollectionFetch".
func ReferenceKind(ref Reference) string {
	switch ref.(type) {
	case *EntityReturn:
		return "EntityReturn"
	case *CollectionReturn:
		return "CollectionReturn"
	case *EntityFetch:
		return "EntityFetch"
	case *CollectionFetch:
		return "CollectionFetch"
	default:
		return fmt.Sprintf("%T", ref)
	}
}

// Render writes a human-readable description of the plan: the reference tree
// followed by the query spaces and their joins. The output is deterministic
// and is used for golden comparisons.
//
//	EntityReturn Order uid=<gen:0> path=-
//	  CollectionFetch Order.lineItems uid=<gen:1> path=[Order.lineItems] fetch=join
//	query spaces:
//	  <gen:0> entity Order
//	    -> <gen:1> role=lineItems path=[Order.lineItems] fetch=join
func (p *LoadPlan) Render(w io.Writer) error {
	var b strings.Builder
	p.Walk(func(ref Reference, depth int) bool {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(describeReference(ref))
		b.WriteByte('\n')
		return true
	})

	b.WriteString("query spaces:\n")
	for _, s := range p.spaces {
		fmt.Fprintf(&b, "  %s %s %s\n", s.UID(), s.Kind(), s.Descriptor().Key)
		for _, j := range s.Joins() {
			b.WriteString("    ")
			b.WriteString(describeJoin(j))
			b.WriteByte('\n')
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// String returns the Render output.
func (p *LoadPlan) String() string {
	var b strings.Builder
	_ = p.Render(&b)
	return b.String()
}

func describeReference(ref Reference) string {
	path := ref.PropertyPath().String()
	if path == "" {
		path = "-"
	}
	line := fmt.Sprintf("%s %s uid=%s path=%s",
		ReferenceKind(ref), ref.QuerySpace().Descriptor().Key, ref.QuerySpace().UID(), path)
	if f, ok := ref.(Fetch); ok {
		line += " fetch=" + f.Strategy().String()
		if f.Reused() {
			line += " reused"
		}
	}
	return line
}

func describeJoin(j spaces.Join) string {
	return fmt.Sprintf("-> %s role=%s path=%s fetch=%s", j.Right, j.Role, j.Path.String(), j.Fetch)
}
