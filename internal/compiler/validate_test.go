package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loadplan/internal/ir"
	"github.com/roach88/loadplan/internal/testutil"
)

func codes(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

// TestValidateFixtures checks that every canned metamodel is valid.
func TestValidateFixtures(t *testing.T) {
	models := map[string]*ir.Metamodel{
		"order":    testutil.OrderModel(),
		"flat":     testutil.FlatOrderModel(),
		"employee": testutil.EmployeeModel(),
		"party":    testutil.PartyModel(),
		"chain":    testutil.ChainModel(5),
	}
	for name, m := range models {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, Validate(m))
		})
	}
}

func TestValidateEmptyMetamodel(t *testing.T) {
	assert.Empty(t, Validate(ir.NewMetamodel()))
}

func TestValidateMissingTable(t *testing.T) {
	m := ir.NewMetamodel().MustAdd(ir.Descriptor{Key: "Order", Kind: ir.KindEntity})

	errs := Validate(m)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrMissingTable, errs[0].Code)
	assert.Equal(t, "Order.table", errs[0].Field)
}

func TestValidateSubtypeInheritsTable(t *testing.T) {
	m := ir.NewMetamodel().
		MustAdd(ir.Descriptor{Key: "Party", Kind: ir.KindEntity, Table: "parties"}).
		MustAdd(ir.Descriptor{Key: "Person", Kind: ir.KindEntity, Supertype: "Party"})

	assert.Empty(t, Validate(m))
}

func TestValidateUnknownSupertype(t *testing.T) {
	m := ir.NewMetamodel().
		MustAdd(ir.Descriptor{Key: "Person", Kind: ir.KindEntity, Table: "people", Supertype: "Party"})

	errs := Validate(m)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownSupertype, errs[0].Code)
}

func TestValidateSupertypeIsCollection(t *testing.T) {
	m := ir.NewMetamodel().
		MustAdd(ir.Descriptor{Key: "Order", Kind: ir.KindEntity, Table: "orders"}).
		MustAdd(ir.Descriptor{Key: "Order.lines", Kind: ir.KindCollection, Owner: "Order", Nature: ir.NatureBag}).
		MustAdd(ir.Descriptor{Key: "Weird", Kind: ir.KindEntity, Table: "weird", Supertype: "Order.lines"})

	assert.Equal(t, []string{ErrSupertypeNotEntity}, codes(Validate(m)))
}

func TestValidateInheritanceLoop(t *testing.T) {
	m := ir.NewMetamodel().
		MustAdd(ir.Descriptor{Key: "A", Kind: ir.KindEntity, Table: "a", Supertype: "B"}).
		MustAdd(ir.Descriptor{Key: "B", Kind: ir.KindEntity, Table: "b", Supertype: "A"})

	assert.Equal(t, []string{ErrInheritanceLoop, ErrInheritanceLoop}, codes(Validate(m)))
}

func TestValidateSelfSupertype(t *testing.T) {
	m := ir.NewMetamodel().
		MustAdd(ir.Descriptor{Key: "A", Kind: ir.KindEntity, Table: "a", Supertype: "A"})

	assert.Equal(t, []string{ErrInheritanceLoop}, codes(Validate(m)))
}

func TestValidateInvalidNature(t *testing.T) {
	m := ir.NewMetamodel().
		MustAdd(ir.Descriptor{Key: "Order", Kind: ir.KindEntity, Table: "orders"}).
		MustAdd(ir.Descriptor{Key: "Order.lines", Kind: ir.KindCollection, Owner: "Order", Nature: "array"})

	errs := Validate(m)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidNature, errs[0].Code)
	assert.Contains(t, errs[0].Message, "array")
}

func TestValidateUnknownOwner(t *testing.T) {
	m := ir.NewMetamodel().
		MustAdd(ir.Descriptor{Key: "Order.lines", Kind: ir.KindCollection, Owner: "Order", Nature: ir.NatureBag})

	assert.Equal(t, []string{ErrUnknownOwner}, codes(Validate(m)))
}

func TestValidateIndexOnNonMap(t *testing.T) {
	m := ir.NewMetamodel().
		MustAdd(ir.Descriptor{Key: "Product", Kind: ir.KindEntity, Table: "products"}).
		MustAdd(ir.Descriptor{
			Key: "Product.tags", Kind: ir.KindCollection, Owner: "Product", Nature: ir.NatureList,
			Attributes: []ir.Attribute{
				{Name: ir.IndexAttributeName, Kind: ir.AttributeIndex, Target: "Product"},
			},
		})

	assert.Equal(t, []string{ErrIndexOnNonMap}, codes(Validate(m)))
}

func TestValidateMapWithIndex(t *testing.T) {
	m := ir.NewMetamodel().
		MustAdd(ir.Descriptor{Key: "Product", Kind: ir.KindEntity, Table: "products"}).
		MustAdd(ir.Descriptor{
			Key: "Product.prices", Kind: ir.KindCollection, Owner: "Product", Nature: ir.NatureMap,
			Attributes: []ir.Attribute{
				{Name: ir.IndexAttributeName, Kind: ir.AttributeIndex, Target: "Product"},
			},
		})

	assert.Empty(t, Validate(m))
}

func TestValidateDuplicateAttribute(t *testing.T) {
	m := ir.NewMetamodel().MustAdd(ir.Descriptor{
		Key: "Order", Kind: ir.KindEntity, Table: "orders",
		Attributes: []ir.Attribute{
			{Name: "placedAt", Kind: ir.AttributeBasic},
			{Name: "placedAt", Kind: ir.AttributeBasic},
		},
	})

	errs := Validate(m)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateAttribute, errs[0].Code)
	assert.Equal(t, "Order.attributes[1].name", errs[0].Field)
}

func TestValidateEmptyAttributeName(t *testing.T) {
	m := ir.NewMetamodel().MustAdd(ir.Descriptor{
		Key: "Order", Kind: ir.KindEntity, Table: "orders",
		Attributes: []ir.Attribute{{Kind: ir.AttributeBasic}},
	})

	assert.Equal(t, []string{ErrEmptyAttributeName}, codes(Validate(m)))
}

func TestValidateAttributeKindPlacement(t *testing.T) {
	m := ir.NewMetamodel().
		MustAdd(ir.Descriptor{
			Key: "Order", Kind: ir.KindEntity, Table: "orders",
			Attributes: []ir.Attribute{
				{Name: ir.ElementAttributeName, Kind: ir.AttributeElement, Target: "Order"},
				{Name: "odd", Kind: "many-to-many", Target: "Order"},
			},
		})

	assert.Equal(t, []string{ErrInvalidAttributeKind, ErrInvalidAttributeKind}, codes(Validate(m)))
}

func TestValidateInvalidFetchStyle(t *testing.T) {
	m := ir.NewMetamodel().
		MustAdd(ir.Descriptor{
			Key: "Order", Kind: ir.KindEntity, Table: "orders",
			Attributes: []ir.Attribute{
				{Name: "customer", Kind: ir.AttributeManyToOne, Target: "Order", Fetch: ir.FetchStyle(42)},
			},
		})

	assert.Equal(t, []string{ErrInvalidFetchStyle}, codes(Validate(m)))
}

func TestValidateBatchSize(t *testing.T) {
	tests := []struct {
		name  string
		attr  ir.Attribute
		codes []string
	}{
		{
			name:  "negative",
			attr:  ir.Attribute{Name: "a", Kind: ir.AttributeManyToOne, Target: "Order", Fetch: ir.FetchBatch, BatchSize: -1},
			codes: []string{ErrInvalidBatchSize},
		},
		{
			name:  "with join",
			attr:  ir.Attribute{Name: "a", Kind: ir.AttributeManyToOne, Target: "Order", Fetch: ir.FetchJoin, BatchSize: 8},
			codes: []string{ErrInvalidBatchSize},
		},
		{
			name:  "with batch",
			attr:  ir.Attribute{Name: "a", Kind: ir.AttributeManyToOne, Target: "Order", Fetch: ir.FetchBatch, BatchSize: 8},
			codes: []string{},
		},
		{
			name:  "with unset style",
			attr:  ir.Attribute{Name: "a", Kind: ir.AttributeManyToOne, Target: "Order", BatchSize: 8},
			codes: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ir.NewMetamodel().MustAdd(ir.Descriptor{
				Key: "Order", Kind: ir.KindEntity, Table: "orders",
				Attributes: []ir.Attribute{tt.attr},
			})
			assert.Equal(t, tt.codes, codes(Validate(m)))
		})
	}
}

func TestValidateDanglingTarget(t *testing.T) {
	m := ir.NewMetamodel().MustAdd(ir.Descriptor{
		Key: "Invoice", Kind: ir.KindEntity, Table: "invoices",
		Attributes: []ir.Attribute{
			{Name: "customer", Kind: ir.AttributeManyToOne, Target: "Customer"},
		},
	})

	errs := Validate(m)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDanglingTarget, errs[0].Code)
	assert.Equal(t, "Invoice.attributes[0].target", errs[0].Field)
	assert.Contains(t, errs[0].Error(), "[E215]")
}

func TestValidateTargetKindMismatch(t *testing.T) {
	m := ir.NewMetamodel().
		MustAdd(ir.Descriptor{
			Key: "Order", Kind: ir.KindEntity, Table: "orders",
			Attributes: []ir.Attribute{
				{Name: "lines", Kind: ir.AttributeManyToOne, Target: "Order.lines"},
				{Name: "self", Kind: ir.AttributeCollection, Target: "Order"},
			},
		}).
		MustAdd(ir.Descriptor{Key: "Order.lines", Kind: ir.KindCollection, Owner: "Order", Nature: ir.NatureBag})

	assert.Equal(t, []string{ErrTargetKindMismatch, ErrTargetKindMismatch}, codes(Validate(m)))
}

func TestValidateCollectsAllErrors(t *testing.T) {
	m := ir.NewMetamodel().
		MustAdd(ir.Descriptor{
			Key: "Invoice", Kind: ir.KindEntity,
			Attributes: []ir.Attribute{
				{Name: "customer", Kind: ir.AttributeManyToOne, Target: "Customer"},
				{Name: "customer", Kind: ir.AttributeBasic},
			},
		})

	assert.Equal(t, []string{ErrMissingTable, ErrDanglingTarget, ErrDuplicateAttribute}, codes(Validate(m)))
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "Order.table", Message: "entity \"Order\" must declare a table", Code: ErrMissingTable}
	assert.Equal(t, `[E201] Order.table: entity "Order" must declare a table`, err.Error())
}
