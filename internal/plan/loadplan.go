package plan

import (
	"sort"

	"github.com/roach88/loadplan/internal/fetch"
	"github.com/roach88/loadplan/internal/ir"
	"github.com/roach88/loadplan/internal/spaces"
)

// LoadOptions are the caller's options for one load request.
type LoadOptions struct {
	// Fetch holds per-path strategy overrides and the join depth limit.
	Fetch fetch.Options

	// UIDs optionally pins the query space uid created at a property path.
	// Callers use this to keep SQL aliases stable across builds. Paths without
	// an entry get a generated uid, never one pinned here.
	//
	// A pin only applies where a space is created. A path whose fetch reuses
	// the space of an already visited descriptor keeps that space's uid, and
	// pins at paths the build never reaches are ignored. Pinning one uid at
	// two created spaces fails the build.
	UIDs map[ir.PropertyPath]string
}

// LoadPlan is the immutable result of a build: the root reference plus every
// query space reachable from it.
//
// Query spaces point at the descriptors of the Persisters the plan was built
// from. Those descriptors are shared with the metamodel and must be treated
// as read-only.
type LoadPlan struct {
	root    Return
	spaces  []*spaces.QuerySpace
	byUID   map[string]*spaces.QuerySpace
	options LoadOptions
}

// Root returns the root reference.
func (p *LoadPlan) Root() Return {
	return p.root
}

// RootSpace returns the root reference's query space.
func (p *LoadPlan) RootSpace() *spaces.QuerySpace {
	return p.root.QuerySpace()
}

// QuerySpaces returns every space in creation order. Creation order is the
// deterministic depth-first order of the build and drives alias assignment.
func (p *LoadPlan) QuerySpaces() []*spaces.QuerySpace {
	return append([]*spaces.QuerySpace(nil), p.spaces...)
}

// QuerySpaceByUID looks up a space by uid.
func (p *LoadPlan) QuerySpaceByUID(uid string) (*spaces.QuerySpace, error) {
	space, ok := p.byUID[uid]
	if !ok {
		return nil, &spaces.UIDNotFoundError{UID: uid}
	}
	return space, nil
}

// Joins returns every join edge, grouped by left space in creation order.
func (p *LoadPlan) Joins() []spaces.Join {
	var joins []spaces.Join
	for _, s := range p.spaces {
		joins = append(joins, s.Joins()...)
	}
	return joins
}

// Options returns the load options the plan was built with.
func (p *LoadPlan) Options() LoadOptions {
	return p.options
}

// Walk visits every reference depth-first, parents before children, in
// declared attribute order. Returning false from fn skips the reference's
// fetches.
func (p *LoadPlan) Walk(fn func(ref Reference, depth int) bool) {
	var visit func(Reference, int)
	visit = func(ref Reference, depth int) {
		if !fn(ref, depth) {
			return
		}
		for _, f := range ref.Fetches() {
			visit(f, depth+1)
		}
	}
	visit(p.root, 0)
}

// Fetches returns every fetch reference in Walk order.
func (p *LoadPlan) Fetches() []Fetch {
	var fetches []Fetch
	p.Walk(func(ref Reference, _ int) bool {
		if f, ok := ref.(Fetch); ok {
			fetches = append(fetches, f)
		}
		return true
	})
	return fetches
}

// Signature returns the content-addressed identity of the plan's structure:
// root, spaces, joins, fetch strategies and the overrides that produced them.
// Plans built from the same metamodel with the same options share a signature.
func (p *LoadPlan) Signature() (string, error) {
	return ir.Signature(ir.DomainPlan, p.canonicalDocument())
}

func (p *LoadPlan) canonicalDocument() map[string]any {
	spaceList := make([]any, 0, len(p.spaces))
	for _, s := range p.spaces {
		spaceList = append(spaceList, map[string]any{
			"uid":        s.UID(),
			"kind":       string(s.Kind()),
			"descriptor": s.Descriptor().Key,
		})
	}

	joinList := make([]any, 0)
	for _, j := range p.Joins() {
		joinList = append(joinList, map[string]any{
			"left":  j.Left,
			"right": j.Right,
			"role":  j.Role,
			"path":  j.Path.String(),
			"fetch": j.Fetch.String(),
		})
	}

	fetchList := make([]any, 0)
	for _, f := range p.Fetches() {
		fetchList = append(fetchList, map[string]any{
			"path":     f.PropertyPath().String(),
			"uid":      f.QuerySpace().UID(),
			"strategy": f.Strategy().String(),
			"reused":   f.Reused(),
		})
	}

	overrides := make(map[string]any, len(p.options.Fetch.Overrides))
	for path, strategy := range p.options.Fetch.Overrides {
		overrides[path.String()] = strategy.String()
	}

	return map[string]any{
		"root":           p.RootSpace().Descriptor().Key,
		"spaces":         spaceList,
		"joins":          joinList,
		"fetches":        fetchList,
		"overrides":      overrides,
		"max_join_depth": p.options.Fetch.MaxJoinDepth,
	}
}

// verifyReachable checks that every space can be reached from the root space
// by following joins. It returns the uids that cannot, sorted.
func verifyReachable(root *spaces.QuerySpace, all []*spaces.QuerySpace, byUID map[string]*spaces.QuerySpace) []string {
	seen := map[string]bool{root.UID(): true}
	queue := []*spaces.QuerySpace{root}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, j := range s.Joins() {
			if seen[j.Right] {
				continue
			}
			seen[j.Right] = true
			if next, ok := byUID[j.Right]; ok {
				queue = append(queue, next)
			}
		}
	}

	var orphans []string
	for _, s := range all {
		if !seen[s.UID()] {
			orphans = append(orphans, s.UID())
		}
	}
	sort.Strings(orphans)
	return orphans
}
