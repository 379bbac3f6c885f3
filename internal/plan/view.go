package plan

import "github.com/roach88/loadplan/internal/spaces"

// View is the serializable form of a load plan, used for JSON output and the
// plan journal.
type View struct {
	Root      string      `json:"root"`
	RootKind  string      `json:"root_kind"`
	Signature string      `json:"signature"`
	Spaces    []SpaceView `json:"query_spaces"`
	Fetches   []FetchView `json:"fetches"`
}

// SpaceView describes one query space and its outgoing joins.
type SpaceView struct {
	UID        string        `json:"uid"`
	Kind       string        `json:"kind"`
	Descriptor string        `json:"descriptor"`
	Alias      string        `json:"alias,omitempty"`
	Joins      []spaces.Join `json:"joins,omitempty"`
}

// FetchView describes one fetch reference.
type FetchView struct {
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	Parent    string `json:"parent"` // parent space uid
	UID       string `json:"uid"`
	Attribute string `json:"attribute"`
	Strategy  string `json:"strategy"`
	Reused    bool   `json:"reused,omitempty"`
	Depth     int    `json:"depth"`
}

// View returns the serializable form of the plan. aliases may be nil; when
// given, each space view carries its SQL alias.
func (p *LoadPlan) View(aliases map[string]string) (View, error) {
	sig, err := p.Signature()
	if err != nil {
		return View{}, err
	}

	v := View{
		Root:      p.RootSpace().Descriptor().Key,
		RootKind:  ReferenceKind(p.root),
		Signature: sig,
		Spaces:    make([]SpaceView, 0, len(p.spaces)),
		Fetches:   make([]FetchView, 0),
	}
	for _, s := range p.spaces {
		v.Spaces = append(v.Spaces, SpaceView{
			UID:        s.UID(),
			Kind:       string(s.Kind()),
			Descriptor: s.Descriptor().Key,
			Alias:      aliases[s.UID()],
			Joins:      s.Joins(),
		})
	}
	p.Walk(func(ref Reference, depth int) bool {
		f, ok := ref.(Fetch)
		if !ok {
			return true
		}
		v.Fetches = append(v.Fetches, FetchView{
			Kind:      ReferenceKind(ref),
			Path:      f.PropertyPath().String(),
			Parent:    f.Parent().QuerySpace().UID(),
			UID:       f.QuerySpace().UID(),
			Attribute: f.Attribute().Name,
			Strategy:  f.Strategy().String(),
			Reused:    f.Reused(),
			Depth:     depth,
		})
		return true
	})
	return v, nil
}
