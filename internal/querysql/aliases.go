// Package querysql assigns the SQL-facing names of a load plan: one table
// alias per query space.
//
// Aliases are a pure function of the plan: spaces are numbered in creation
// order, which is the deterministic depth-first order of the build, so the
// same plan always yields the same aliases and generated SQL is reproducible.
package querysql

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/roach88/loadplan/internal/plan"
	"github.com/roach88/loadplan/internal/spaces"
)

// maxStemLength bounds the table-derived part of an alias.
const maxStemLength = 10

// AliasMap maps query space uids to SQL table aliases.
type AliasMap struct {
	byUID map[string]string
	order []string
}

// AssignAliases assigns an alias to every query space of p.
//
// Alias format: lower-cased stem + ordinal + "_", e.g. "orders0_",
// "lineitems1_". The stem is the space's table, or the role's short name for
// collections without a table, reduced to letters, digits and underscores and
// truncated to ten characters. The ordinal makes aliases unique.
func AssignAliases(p *plan.LoadPlan) AliasMap {
	all := p.QuerySpaces()
	m := AliasMap{
		byUID: make(map[string]string, len(all)),
		order: make([]string, 0, len(all)),
	}
	for i, s := range all {
		m.byUID[s.UID()] = fmt.Sprintf("%s%d_", aliasStem(s), i)
		m.order = append(m.order, s.UID())
	}
	return m
}

// Alias returns the alias of the space with uid.
func (m AliasMap) Alias(uid string) (string, error) {
	alias, ok := m.byUID[uid]
	if !ok {
		return "", &spaces.UIDNotFoundError{UID: uid}
	}
	return alias, nil
}

// Map returns a copy of the uid -> alias mapping.
func (m AliasMap) Map() map[string]string {
	out := make(map[string]string, len(m.byUID))
	for uid, alias := range m.byUID {
		out[uid] = alias
	}
	return out
}

// UIDs returns the uids in alias order.
func (m AliasMap) UIDs() []string {
	return append([]string(nil), m.order...)
}

// Len returns the number of aliases.
func (m AliasMap) Len() int {
	return len(m.order)
}

func aliasStem(s *spaces.QuerySpace) string {
	d := s.Descriptor()
	source := d.Table
	if source == "" {
		source = d.ShortName()
	}

	var b strings.Builder
	for _, r := range strings.ToLower(source) {
		if b.Len() >= maxStemLength {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "t"
	}
	stem := b.String()
	if unicode.IsDigit(rune(stem[0])) {
		stem = "t" + stem
	}
	return stem
}
