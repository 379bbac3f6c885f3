package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loadplan/internal/ir"
)

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func TestCompileEntityBasic(t *testing.T) {
	v := compileString(t, `
		entity: Order: {
			table: "orders"
			id:    "order_id"
			attributes: [
				{name: "placedAt"},
				{name: "customer", target: "Customer", fetch: "select"},
			]
		}
	`)

	descs, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Order")))
	require.NoError(t, err)
	require.Len(t, descs, 1)

	d := descs[0]
	assert.Equal(t, "Order", d.Key)
	assert.Equal(t, ir.KindEntity, d.Kind)
	assert.Equal(t, "orders", d.Table)
	assert.Equal(t, "order_id", d.ID)
	require.Len(t, d.Attributes, 2)
	assert.Equal(t, ir.Attribute{Name: "placedAt", Kind: ir.AttributeBasic}, d.Attributes[0])
	assert.Equal(t, ir.Attribute{
		Name: "customer", Kind: ir.AttributeManyToOne, Target: "Customer", Fetch: ir.FetchSelect,
	}, d.Attributes[1])
}

func TestCompileEntityCollection(t *testing.T) {
	v := compileString(t, `
		entity: Order: {
			table: "orders"
			attributes: [
				{name: "lineItems", collection: {nature: "list", element: "LineItem", key: "order_id", table: "order_lines"}, fetch: "join"},
			]
		}
	`)

	descs, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Order")))
	require.NoError(t, err)
	require.Len(t, descs, 2)

	attr := descs[0].Attributes[0]
	assert.Equal(t, ir.AttributeCollection, attr.Kind)
	assert.Equal(t, "Order.lineItems", attr.Target)
	assert.Equal(t, ir.FetchJoin, attr.Fetch)

	coll := descs[1]
	assert.Equal(t, "Order.lineItems", coll.Key)
	assert.Equal(t, ir.KindCollection, coll.Kind)
	assert.Equal(t, "Order", coll.Owner)
	assert.Equal(t, ir.NatureList, coll.Nature)
	assert.Equal(t, "order_lines", coll.Table)
	assert.Equal(t, "order_id", coll.ID)
	require.Len(t, coll.Attributes, 1)
	assert.Equal(t, ir.ElementAttributeName, coll.Attributes[0].Name)
	assert.Equal(t, ir.AttributeElement, coll.Attributes[0].Kind)
	assert.Equal(t, "LineItem", coll.Attributes[0].Target)
}

func TestCompileEntityCollectionDefaultsToBag(t *testing.T) {
	v := compileString(t, `
		entity: Employee: {
			table: "employees"
			attributes: [{name: "reports", collection: {element: "Employee"}}]
		}
	`)

	descs, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Employee")))
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, ir.NatureBag, descs[1].Nature)
	assert.Equal(t, ir.FetchUnset, descs[0].Attributes[0].Fetch)
}

func TestCompileEntityBasicValueCollection(t *testing.T) {
	v := compileString(t, `
		entity: Order: {
			table: "orders"
			attributes: [{name: "tags", collection: {nature: "set", table: "order_tags"}}]
		}
	`)

	descs, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Order")))
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Empty(t, descs[1].Attributes, "collection of basic values has no element attribute")
}

func TestCompileEntityMapIndex(t *testing.T) {
	v := compileString(t, `
		entity: Warehouse: {
			table: "warehouses"
			attributes: [
				{name: "stock", collection: {nature: "map", element: "StockLevel", index: "Product", element_fetch: "select"}, fetch: "join"},
			]
		}
	`)

	descs, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Warehouse")))
	require.NoError(t, err)
	require.Len(t, descs, 2)

	coll := descs[1]
	assert.Equal(t, ir.NatureMap, coll.Nature)
	require.Len(t, coll.Attributes, 2)
	assert.Equal(t, ir.Attribute{
		Name: ir.ElementAttributeName, Kind: ir.AttributeElement, Target: "StockLevel", Fetch: ir.FetchSelect,
	}, coll.Attributes[0])
	assert.Equal(t, ir.Attribute{
		Name: ir.IndexAttributeName, Kind: ir.AttributeIndex, Target: "Product",
	}, coll.Attributes[1])
}

func TestCompileEntityOneToOneAndBatch(t *testing.T) {
	v := compileString(t, `
		entity: User: {
			table: "users"
			attributes: [
				{name: "profile", target: "Profile", kind: "one-to-one"},
				{name: "roles", target: "Role", fetch: "batch", batch_size: 32},
			]
		}
	`)

	descs, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.User")))
	require.NoError(t, err)
	attrs := descs[0].Attributes
	assert.Equal(t, ir.AttributeOneToOne, attrs[0].Kind)
	assert.Equal(t, ir.FetchBatch, attrs[1].Fetch)
	assert.Equal(t, 32, attrs[1].BatchSize)
}

func TestCompileEntityExtends(t *testing.T) {
	v := compileString(t, `
		entity: Person: {
			extends: "Party"
			attributes: [{name: "employer", target: "Company"}]
		}
	`)

	descs, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Person")))
	require.NoError(t, err)
	assert.Equal(t, "Party", descs[0].Supertype)
	assert.Empty(t, descs[0].Table)
}

func TestCompileEntityUnknownFetchStyle(t *testing.T) {
	v := compileString(t, `
		entity: Order: {
			table: "orders"
			attributes: [{name: "customer", target: "Customer", fetch: "eager"}]
		}
	`)

	_, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Order")))
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "entity.Order.customer", compileErr.Field)
	assert.Contains(t, compileErr.Message, "unknown fetch style")
}

func TestCompileEntityMissingAttributeName(t *testing.T) {
	v := compileString(t, `
		entity: Order: {
			table: "orders"
			attributes: [{target: "Customer"}]
		}
	`)

	_, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Order")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attribute name is required")
}

func TestCompileEntityAssociationWithoutTarget(t *testing.T) {
	v := compileString(t, `
		entity: Order: {
			table: "orders"
			attributes: [{name: "customer", kind: "many-to-one"}]
		}
	`)

	_, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Order")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a target")
}

func TestCompileEntityUnsupportedKind(t *testing.T) {
	v := compileString(t, `
		entity: Order: {
			table: "orders"
			attributes: [{name: "customer", target: "Customer", kind: "many-to-many"}]
		}
	`)

	_, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Order")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported attribute kind")
}

func TestCompileEntityBasicWithTarget(t *testing.T) {
	v := compileString(t, `
		entity: Order: {
			table: "orders"
			attributes: [{name: "customer", target: "Customer", kind: "basic"}]
		}
	`)

	_, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Order")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot declare a target")
}

func TestCompileEntityWrongFieldType(t *testing.T) {
	v := compileString(t, `
		entity: Order: {
			table: 123
		}
	`)

	_, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Order")))
	require.Error(t, err)
}

func TestCompileEntityBatchSizeNotInteger(t *testing.T) {
	v := compileString(t, `
		entity: Order: {
			table: "orders"
			attributes: [{name: "customer", target: "Customer", fetch: "batch", batch_size: "many"}]
		}
	`)

	_, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Order")))
	require.Error(t, err)
}

func TestCompileMetamodel(t *testing.T) {
	v := compileString(t, `
		entity: Order: {
			table: "orders"
			attributes: [
				{name: "lineItems", collection: {element: "LineItem"}, fetch: "join"},
				{name: "customer", target: "Customer"},
			]
		}
		entity: LineItem: {table: "line_items"}
		entity: Customer: {table: "customers"}
	`)

	m, err := CompileMetamodel(v)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Len())

	var keys []string
	for _, d := range m.Descriptors() {
		keys = append(keys, d.Key)
	}
	assert.Equal(t, []string{"Order", "Order.lineItems", "LineItem", "Customer"}, keys)

	coll, ok := m.Lookup("Order.lineItems")
	require.True(t, ok)
	assert.True(t, coll.IsCollection())
}

func TestCompileMetamodelNoEntities(t *testing.T) {
	v := compileString(t, `other: "value"`)

	m, err := CompileMetamodel(v)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestCompileMetamodelRoleCollision(t *testing.T) {
	v := compileString(t, `
		entity: Order: {
			table: "orders"
			attributes: [{name: "lines", collection: {element: "Line"}}]
		}
		entity: "Order.lines": {table: "clash"}
	`)

	_, err := CompileMetamodel(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate descriptor key")
}

func TestCompileMetamodelPropagatesAttributeError(t *testing.T) {
	v := compileString(t, `
		entity: Order: {
			table: "orders"
			attributes: [{name: "customer", target: "Customer", fetch: "lazy"}]
		}
	`)

	_, err := CompileMetamodel(v)
	require.Error(t, err)
	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{
		Field:   "entity.Order.table",
		Message: "table is required",
	}

	assert.Equal(t, "entity.Order.table: table is required", err.Error())
}

func TestFormatCUEErrorNil(t *testing.T) {
	assert.NoError(t, formatCUEError(nil))
}
