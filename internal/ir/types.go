package ir

import (
	"fmt"
	"strings"
)

// DescriptorKind distinguishes entity persisters from collection persisters.
type DescriptorKind string

const (
	KindEntity     DescriptorKind = "entity"
	KindCollection DescriptorKind = "collection"
)

// CollectionNature is the semantic of a collection role.
type CollectionNature string

const (
	NatureBag  CollectionNature = "bag"
	NatureSet  CollectionNature = "set"
	NatureList CollectionNature = "list"
	NatureMap  CollectionNature = "map"
)

// ValidNatures defines allowed collection natures.
var ValidNatures = map[CollectionNature]bool{
	NatureBag:  true,
	NatureSet:  true,
	NatureList: true,
	NatureMap:  true,
}

// AttributeKind classifies a mapped attribute.
type AttributeKind string

const (
	// AttributeBasic is a column-valued attribute. It never produces a query space.
	AttributeBasic AttributeKind = "basic"

	// AttributeManyToOne and AttributeOneToOne point at an entity descriptor.
	AttributeManyToOne AttributeKind = "many-to-one"
	AttributeOneToOne  AttributeKind = "one-to-one"

	// AttributeCollection points at a collection descriptor (its role).
	AttributeCollection AttributeKind = "collection"

	// AttributeElement and AttributeIndex are the synthetic attributes of a
	// collection descriptor pointing at its element and map-key entities.
	AttributeElement AttributeKind = "element"
	AttributeIndex   AttributeKind = "index"
)

// Synthetic attribute names on collection descriptors.
const (
	ElementAttributeName = "<elements>"
	IndexAttributeName   = "<index>"
)

// Attribute describes one mapped attribute of a descriptor.
type Attribute struct {
	Name      string        `json:"name"`
	Kind      AttributeKind `json:"kind"`
	Target    string        `json:"target,omitempty"`     // descriptor key; empty for basic
	Fetch     FetchStyle    `json:"fetch,omitempty"`      // declared style; FetchUnset if none
	BatchSize int           `json:"batch_size,omitempty"` // declared batch size; 0 if none
}

// IsAssociation reports whether the attribute targets another descriptor.
func (a Attribute) IsAssociation() bool {
	return a.Kind != AttributeBasic && a.Kind != ""
}

// IsCollection reports whether the attribute targets a collection role.
func (a Attribute) IsCollection() bool {
	return a.Kind == AttributeCollection
}

// Descriptor is the compiled metadata of one persister: an entity type or a
// collection role.
type Descriptor struct {
	Key        string           `json:"key"` // entity name or collection role ("Order.lineItems")
	Kind       DescriptorKind   `json:"kind"`
	Table      string           `json:"table,omitempty"`
	ID         string           `json:"id,omitempty"`        // identifier (or collection key) column
	Supertype  string           `json:"supertype,omitempty"` // entities only
	Nature     CollectionNature `json:"nature,omitempty"`    // collections only
	Owner      string           `json:"owner,omitempty"`     // collections only
	Attributes []Attribute      `json:"attributes"`
}

// IsCollection reports whether d describes a collection role.
func (d *Descriptor) IsCollection() bool {
	return d.Kind == KindCollection
}

// Role returns the qualified role name for collections ("Order.lineItems")
// and the entity name for entities.
func (d *Descriptor) Role() string {
	return d.Key
}

// ShortName returns the last dotted component of the key: "lineItems" for
// "Order.lineItems", "Order" for "Order".
func (d *Descriptor) ShortName() string {
	if i := strings.LastIndex(d.Key, "."); i >= 0 {
		return d.Key[i+1:]
	}
	return d.Key
}

// Metamodel is the arena of descriptors compiled from mapping metadata.
//
// Descriptors are indexed by their stable key at load time, so traversal code
// tracks visited targets with plain string keys. A Metamodel is not mutated
// after loading and is safe for concurrent readers.
type Metamodel struct {
	descriptors []*Descriptor
	index       map[string]int
}

// NewMetamodel creates an empty metamodel.
func NewMetamodel() *Metamodel {
	return &Metamodel{index: make(map[string]int)}
}

// Add registers a descriptor. Keys must be unique.
func (m *Metamodel) Add(d Descriptor) error {
	if d.Key == "" {
		return fmt.Errorf("descriptor key is required")
	}
	if _, exists := m.index[d.Key]; exists {
		return fmt.Errorf("duplicate descriptor key %q", d.Key)
	}
	d.Attributes = append([]Attribute(nil), d.Attributes...)
	m.index[d.Key] = len(m.descriptors)
	m.descriptors = append(m.descriptors, &d)
	return nil
}

// MustAdd is like Add but panics on error.
// Use only in tests or when inputs are known to be valid.
func (m *Metamodel) MustAdd(d Descriptor) *Metamodel {
	if err := m.Add(d); err != nil {
		panic(err)
	}
	return m
}

// Lookup returns the descriptor registered under key.
func (m *Metamodel) Lookup(key string) (*Descriptor, bool) {
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.descriptors[i], true
}

// Len returns the number of descriptors.
func (m *Metamodel) Len() int {
	return len(m.descriptors)
}

// Descriptors returns all descriptors in registration order.
func (m *Metamodel) Descriptors() []*Descriptor {
	return append([]*Descriptor(nil), m.descriptors...)
}

// Attributes returns the attributes of the descriptor under key in declared
// order, supertype attributes first. An attribute redeclared by a subtype
// replaces the inherited one in place.
func (m *Metamodel) Attributes(key string) ([]Attribute, error) {
	var chain []*Descriptor
	seen := make(map[string]bool)
	for k := key; k != ""; {
		if seen[k] {
			return nil, fmt.Errorf("inheritance loop at %q", k)
		}
		seen[k] = true
		d, ok := m.Lookup(k)
		if !ok {
			if k == key {
				return nil, fmt.Errorf("unknown descriptor %q", k)
			}
			return nil, fmt.Errorf("unknown supertype %q of %q", k, key)
		}
		chain = append(chain, d)
		k = d.Supertype
	}

	var attrs []Attribute
	position := make(map[string]int)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, a := range chain[i].Attributes {
			if at, ok := position[a.Name]; ok {
				attrs[at] = a
				continue
			}
			position[a.Name] = len(attrs)
			attrs = append(attrs, a)
		}
	}
	return attrs, nil
}
